package sfzcore

import "testing"

func TestMidiStateNoteOnOff(t *testing.T) {
	m := NewMidiState()
	m.NoteOn(0, 60, 100)
	if m.NoteOnVelocity(0, 60) != 100 {
		t.Errorf("NoteOnVelocity = %d, want 100", m.NoteOnVelocity(0, 60))
	}
	m.NoteOff(0, 60)
	if m.NoteOnVelocity(0, 60) != 0 {
		t.Errorf("NoteOnVelocity after NoteOff = %d, want 0", m.NoteOnVelocity(0, 60))
	}
}

func TestMidiStateCC7Bit(t *testing.T) {
	m := NewMidiState()
	m.CC7Bit(7, 127)
	if m.CC(7) != 1 {
		t.Errorf("CC(7) = %f, want 1", m.CC(7))
	}
	m.CC7Bit(7, 0)
	if m.CC(7) != 0 {
		t.Errorf("CC(7) = %f, want 0", m.CC(7))
	}
}

func TestMidiStateCCOutOfRange(t *testing.T) {
	m := NewMidiState()
	if m.CC(-1) != 0 || m.CC(200) != 0 {
		t.Error("out-of-range CC numbers should read as 0")
	}
	m.CC7Bit(-1, 127) // must not panic
	m.CC7Bit(200, 127)
}

func TestMidiStatePitchWheelNormalized(t *testing.T) {
	m := NewMidiState()
	m.PitchWheel(8192)
	if m.PitchBendNormalized() != 1 {
		t.Errorf("PitchBendNormalized = %f, want 1", m.PitchBendNormalized())
	}
	m.PitchWheel(-8192)
	if m.PitchBendNormalized() != -1 {
		t.Errorf("PitchBendNormalized = %f, want -1", m.PitchBendNormalized())
	}
	m.PitchWheel(-20000) // must clamp, not panic
	if m.PitchBendNormalized() != -1 {
		t.Errorf("PitchBendNormalized should clamp to -1, got %f", m.PitchBendNormalized())
	}
}

func TestMidiStateTempoToBPM(t *testing.T) {
	m := NewMidiState()
	m.Tempo(0.5) // 0.5s per quarter note = 120bpm
	if m.BPM() != 120 {
		t.Errorf("BPM = %f, want 120", m.BPM())
	}
	m.Tempo(0) // non-positive must be ignored
	if m.BPM() != 120 {
		t.Errorf("BPM after zero tempo = %f, want unchanged 120", m.BPM())
	}
}

func TestMidiStateEventsForBlockDefaultsToCurrentValue(t *testing.T) {
	m := NewMidiState()
	m.CC7Bit(1, 64)
	m.AdvanceTime(128) // clears the event log
	events := m.EventsForBlock(1)
	if len(events) != 1 || events[0].valueNormalized != m.CC(1) {
		t.Errorf("EventsForBlock with no queued events should report one entry at the current value, got %v", events)
	}
}

func TestMidiStateEventsForBlockQueuesNewValue(t *testing.T) {
	m := NewMidiState()
	m.CCHD(1, 0.5)
	events := m.EventsForBlock(1)
	if len(events) != 1 || events[0].valueNormalized != 0.5 {
		t.Errorf("EventsForBlock after CCHD = %v, want one entry at 0.5", events)
	}
}

func TestMidiStateResetAllControllers(t *testing.T) {
	m := NewMidiState()
	m.CC7Bit(1, 127)
	m.PitchWheel(4000)
	m.Aftertouch(100)
	m.ResetAllControllers()
	if m.CC(1) != 0 || m.PitchBendNormalized() != 0 || m.AftertouchNormalized() != 0 {
		t.Error("ResetAllControllers should zero CC/pitch/aftertouch state")
	}
}

func TestMidiStateAllNotesOff(t *testing.T) {
	m := NewMidiState()
	m.NoteOn(0, 60, 100)
	m.NoteOn(1, 64, 90)
	m.AllNotesOff()
	if m.NoteOnVelocity(0, 60) != 0 || m.NoteOnVelocity(1, 64) != 0 {
		t.Error("AllNotesOff should zero every channel's note-on velocities")
	}
}

func TestMidiStateAdvanceTimeSampleClock(t *testing.T) {
	m := NewMidiState()
	m.AdvanceTime(512)
	m.AdvanceTime(512)
	if m.SampleClock() != 1024 {
		t.Errorf("SampleClock = %d, want 1024", m.SampleClock())
	}
}
