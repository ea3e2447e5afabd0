//go:build !jack
// +build !jack

package realtime

import (
	"errors"

	"sfzcore"
)

// JackEngine is a no-op stand-in when the module is built without the jack
// tag, so callers can reference realtime.JackEngine unconditionally.
type JackEngine struct{}

var errJackDisabled = errors.New("sfzcore: JACK support not enabled in this build")

func NewJackEngine(synth *sfzcore.Synth, clientName string) (*JackEngine, error) {
	return nil, errJackDisabled
}

func (e *JackEngine) Start() error { return errJackDisabled }
func (e *JackEngine) Stop() error  { return errJackDisabled }
func (e *JackEngine) Close() error { return errJackDisabled }
