//go:build midi
// +build midi

package realtime

import (
	"fmt"

	"github.com/GeoffreyPlitt/debuggo"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"sfzcore"
)

var midiDebug = debuggo.Debug("sfzcore:realtime:midi")

// MidiInput streams a native system MIDI input port into a sfzcore.Synth,
// for hosts that render audio some other way (e.g. a plain PortAudio/ALSA
// output loop) but still want to play the engine from a MIDI keyboard.
type MidiInput struct {
	driver *rtmididrv.Driver
	in     midi.In
	stop   func()
	synth  *sfzcore.Synth
}

// OpenMidiInput opens the named system MIDI input port (or the first
// available port if portName is empty) and begins forwarding events to
// synth immediately.
func OpenMidiInput(synth *sfzcore.Synth, portName string) (*MidiInput, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("sfzcore: failed to open MIDI driver: %w", err)
	}

	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("sfzcore: failed to list MIDI inputs: %w", err)
	}
	if len(ins) == 0 {
		driver.Close()
		return nil, fmt.Errorf("sfzcore: no MIDI input ports available")
	}

	in := ins[0]
	if portName != "" {
		found := false
		for _, candidate := range ins {
			if candidate.String() == portName {
				in = candidate
				found = true
				break
			}
		}
		if !found {
			driver.Close()
			return nil, fmt.Errorf("sfzcore: no MIDI input port named %q", portName)
		}
	}

	if err := in.Open(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("sfzcore: failed to open MIDI port %q: %w", in.String(), err)
	}

	m := &MidiInput{driver: driver, in: in, synth: synth}
	stop, err := midi.ListenTo(in, m.handle)
	if err != nil {
		in.Close()
		driver.Close()
		return nil, fmt.Errorf("sfzcore: failed to listen on MIDI port %q: %w", in.String(), err)
	}
	m.stop = stop
	midiDebug("listening on MIDI port %q", in.String())
	return m, nil
}

// Close stops the listener and releases the MIDI driver.
func (m *MidiInput) Close() error {
	if m.stop != nil {
		m.stop()
	}
	if err := m.in.Close(); err != nil {
		return fmt.Errorf("sfzcore: failed to close MIDI port: %w", err)
	}
	return m.driver.Close()
}

// handle is midi.ListenTo's callback. It never blocks: every sfzcore.Synth
// entry point it calls only TryLocks the engine's control mutex.
func (m *MidiInput) handle(msg midi.Message, timestampms int32) {
	var channel, key, velocity, controller, value, pressure uint8
	var relPitch int16
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			m.synth.NoteOff(0, int(key), 0, int(channel))
		} else {
			m.synth.NoteOn(0, int(key), int(velocity), int(channel))
		}
	case msg.GetNoteOff(&channel, &key, &velocity):
		m.synth.NoteOff(0, int(key), int(velocity), int(channel))
	case msg.GetControlChange(&channel, &controller, &value):
		m.synth.CC(0, int(controller), int(value))
	case msg.GetPitchBend(&channel, &relPitch, nil):
		m.synth.PitchWheel(0, int(relPitch))
	case msg.GetAfterTouch(&channel, &pressure):
		m.synth.Aftertouch(0, int(pressure))
	}
}
