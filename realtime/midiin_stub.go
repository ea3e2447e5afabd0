//go:build !midi
// +build !midi

package realtime

import (
	"errors"

	"sfzcore"
)

// MidiInput is a no-op stand-in when the module is built without the midi
// tag, so callers can reference realtime.MidiInput unconditionally.
type MidiInput struct{}

var errMidiDisabled = errors.New("sfzcore: native MIDI input support not enabled in this build")

func OpenMidiInput(synth *sfzcore.Synth, portName string) (*MidiInput, error) {
	return nil, errMidiDisabled
}

func (m *MidiInput) Close() error { return errMidiDisabled }
