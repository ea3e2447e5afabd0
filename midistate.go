package sfzcore

import "github.com/GeoffreyPlitt/debuggo"

var midiDebug = debuggo.Debug("sfzcore:midistate")

// numCCs is the size of the MIDI CC address space the engine tracks.
const numCCs = 128

// ccEvent is one CC change queued within the current block.
type ccEvent struct {
	delay          int
	valueNormalized float64
}

// MidiState is the running snapshot of controller/note/pitch state, plus the
// per-block CC event log that ModMatrix.Controller sources consume.
type MidiState struct {
	noteOnVelocity  [16][128]uint8
	noteOnTimestamp [16][128]int64 // samples since engine start, for rt_decay
	ccValues        [numCCs]float64 // normalized [0,1]
	pitchBend       float64         // normalized [-1,1]
	aftertouch      float64         // normalized [0,1]
	bpm             float64

	ccEvents [numCCs][]ccEvent // events queued this block, arrival order
	sampleClock int64
}

func NewMidiState() *MidiState {
	m := &MidiState{bpm: 120}
	for cc := range m.ccValues {
		m.ccValues[cc] = 0
	}
	return m
}

func (m *MidiState) NoteOnVelocity(channel, note int) uint8 {
	return m.noteOnVelocity[channel&0xF][note&0x7F]
}

func (m *MidiState) NoteOnTimestamp(channel, note int) int64 {
	return m.noteOnTimestamp[channel&0xF][note&0x7F]
}

func (m *MidiState) NoteOn(channel, note int, velocity uint8) {
	m.noteOnVelocity[channel&0xF][note&0x7F] = velocity
	m.noteOnTimestamp[channel&0xF][note&0x7F] = m.sampleClock
}

func (m *MidiState) NoteOff(channel, note int) {
	m.noteOnVelocity[channel&0xF][note&0x7F] = 0
}

func (m *MidiState) CC(cc int) float64 {
	if cc < 0 || cc >= numCCs {
		return 0
	}
	return m.ccValues[cc]
}

func (m *MidiState) CC7Bit(cc int, value uint8) {
	m.CCHD(cc, float64(value)/127.0)
}

// CCHD records a high-definition (normalized) CC value, appending a per-block
// event at delay 0; the intra-block offset of the message is not recorded.
func (m *MidiState) CCHD(cc int, normValue float64) {
	if cc < 0 || cc >= numCCs {
		return
	}
	m.ccValues[cc] = normValue
	m.ccEvents[cc] = append(m.ccEvents[cc], ccEvent{delay: 0, valueNormalized: normValue})
}

func (m *MidiState) PitchWheel(value int) {
	m.pitchBend = clampFloat(float64(value)/8192.0, -1, 1)
}

func (m *MidiState) PitchBendNormalized() float64 { return m.pitchBend }

func (m *MidiState) Aftertouch(value int) {
	m.aftertouch = clampFloat(float64(value)/127.0, 0, 1)
}

func (m *MidiState) AftertouchNormalized() float64 { return m.aftertouch }

func (m *MidiState) Tempo(secondsPerQuarter float64) {
	if secondsPerQuarter > 0 {
		m.bpm = 60.0 / secondsPerQuarter
	}
}

func (m *MidiState) BPM() float64 { return m.bpm }

// EventsForBlock returns the CC events queued so far this block for cc,
// starting with an implicit entry at the current value if none were queued.
func (m *MidiState) EventsForBlock(cc int) []ccEvent {
	if cc < 0 || cc >= numCCs {
		return nil
	}
	if len(m.ccEvents[cc]) == 0 {
		return []ccEvent{{delay: 0, valueNormalized: m.ccValues[cc]}}
	}
	return m.ccEvents[cc]
}

// ResetAllControllers implements the MIDI "reset all controllers" CC: sets
// every CC value to 0 (bank-select, volume and pan included) and clears
// pitch-bend/aftertouch.
func (m *MidiState) ResetAllControllers() {
	for cc := range m.ccValues {
		m.ccValues[cc] = 0
	}
	m.pitchBend = 0
	m.aftertouch = 0
}

// AllNotesOff clears velocity tracking for every note on every channel.
func (m *MidiState) AllNotesOff() {
	for ch := range m.noteOnVelocity {
		for n := range m.noteOnVelocity[ch] {
			m.noteOnVelocity[ch][n] = 0
		}
	}
}

// AdvanceTime collapses the per-block CC event log down to its final value
// and advances the internal sample clock by n frames.
func (m *MidiState) AdvanceTime(n int) {
	for cc := range m.ccEvents {
		m.ccEvents[cc] = m.ccEvents[cc][:0]
	}
	m.sampleClock += int64(n)
	midiDebug("advanced time by %d frames (clock=%d)", n, m.sampleClock)
}

func (m *MidiState) SampleClock() int64 { return m.sampleClock }
