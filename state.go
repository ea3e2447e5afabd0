package sfzcore

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/GeoffreyPlitt/debuggo"
)

var stateDebug = debuggo.Debug("sfzcore:state")

// stateVersion is the current persisted-state format version (§6).
const stateVersion = 1

// PersistedState is the plugin-host-facing snapshot of the engine's
// user-configurable parameters, versioned so older saves still load.
type PersistedState struct {
	SfzFilePath      string
	Volume           float32
	NumVoices        int32
	OversamplingLog2 int32
	PreloadSize      int32

	// version >= 1
	ScalaFilePath   string
	ScalaRootKey    int32
	TuningFrequency float32
	StretchedTuning float32
}

// WriteState serializes state to w in the little-endian layout §6 defines.
func WriteState(w io.Writer, state PersistedState) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(stateVersion)); err != nil {
		return fmt.Errorf("sfzcore: write state version: %w", err)
	}
	if err := writeString(w, state.SfzFilePath); err != nil {
		return fmt.Errorf("sfzcore: write sfzFilePath: %w", err)
	}
	for _, v := range []any{state.Volume, state.NumVoices, state.OversamplingLog2, state.PreloadSize} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("sfzcore: write state field: %w", err)
		}
	}
	if err := writeString(w, state.ScalaFilePath); err != nil {
		return fmt.Errorf("sfzcore: write scalaFilePath: %w", err)
	}
	for _, v := range []any{state.ScalaRootKey, state.TuningFrequency, state.StretchedTuning} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("sfzcore: write state field: %w", err)
		}
	}
	return nil
}

// ReadState deserializes a PersistedState from r, substituting defaults for
// the fields version 0 omitted.
func ReadState(r io.Reader) (PersistedState, error) {
	var state PersistedState
	var version uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return state, fmt.Errorf("sfzcore: read state version: %w", err)
	}

	path, err := readString(r)
	if err != nil {
		return state, fmt.Errorf("sfzcore: read sfzFilePath: %w", err)
	}
	state.SfzFilePath = path

	for _, dst := range []any{&state.Volume, &state.NumVoices, &state.OversamplingLog2, &state.PreloadSize} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return state, fmt.Errorf("sfzcore: read state field: %w", err)
		}
	}

	if version == 0 {
		stateDebug("loading version 0 state, substituting tuning defaults")
		state.ScalaRootKey = 60
		state.TuningFrequency = 440
		state.StretchedTuning = 0
		return state, nil
	}

	scalaPath, err := readString(r)
	if err != nil {
		return state, fmt.Errorf("sfzcore: read scalaFilePath: %w", err)
	}
	state.ScalaFilePath = scalaPath
	for _, dst := range []any{&state.ScalaRootKey, &state.TuningFrequency, &state.StretchedTuning} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return state, fmt.Errorf("sfzcore: read state field: %w", err)
		}
	}
	return state, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
