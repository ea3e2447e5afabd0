package sfzcore

import (
	"math"
	"testing"
)

const testSineSfz = `
<region>
sample=*sine
lokey=0 hikey=127
ampeg_attack=0
ampeg_release=0.01
`

func TestNewSynthRenderBlockSilentWithNoRegions(t *testing.T) {
	s := NewSynth(DefaultConfig())
	outL := make([]float64, 128)
	outR := make([]float64, 128)
	s.RenderBlock(outL, outR)
	for i := range outL {
		if outL[i] != 0 || outR[i] != 0 {
			t.Fatalf("an engine with no loaded regions should render silence, got L=%f R=%f at %d", outL[i], outR[i], i)
		}
	}
}

func TestSynthNoteOnStartsVoiceAndRenders(t *testing.T) {
	s := NewSynth(DefaultConfig())
	if err := ParseSfzString(testSineSfz, s); err != nil {
		t.Fatalf("ParseSfzString failed: %v", err)
	}
	s.NoteOn(0, 60, 100, 1)
	if len(s.voices.Active()) != 1 {
		t.Fatalf("NoteOn should activate exactly one voice, got %d", len(s.voices.Active()))
	}

	outL := make([]float64, 256)
	outR := make([]float64, 256)
	s.RenderBlock(outL, outR)
	nonzero := false
	for i, v := range outL {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("RenderBlock produced NaN/Inf at %d", i)
		}
		if v != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Error("RenderBlock with an active sine voice should produce nonzero output")
	}
}

func TestSynthNoteOffReleasesVoice(t *testing.T) {
	s := NewSynth(DefaultConfig())
	if err := ParseSfzString(testSineSfz, s); err != nil {
		t.Fatalf("ParseSfzString failed: %v", err)
	}
	s.NoteOn(0, 60, 100, 1)
	s.NoteOff(0, 60, 100, 1)
	active := s.voices.Active()
	if len(active) != 1 || active[0].state != VoiceReleasing {
		t.Fatalf("NoteOff should move the voice into release, got %+v", active)
	}
}

func TestSynthControlMutexBusyDropsNoteOn(t *testing.T) {
	s := NewSynth(DefaultConfig())
	if err := ParseSfzString(testSineSfz, s); err != nil {
		t.Fatalf("ParseSfzString failed: %v", err)
	}
	s.mu.Lock()
	s.NoteOn(0, 60, 100, 1) // must not block or panic while the control mutex is held
	s.mu.Unlock()
	if len(s.voices.Active()) != 0 {
		t.Error("NoteOn should be silently dropped while the control mutex is held")
	}
}

func TestSynthAllSoundOffCCReleasesEveryVoice(t *testing.T) {
	s := NewSynth(DefaultConfig())
	if err := ParseSfzString(testSineSfz, s); err != nil {
		t.Fatalf("ParseSfzString failed: %v", err)
	}
	s.NoteOn(0, 60, 100, 1)
	s.NoteOn(0, 64, 100, 1)
	s.CC(0, allSoundOffCC, 127)
	for _, v := range s.voices.Active() {
		if v.state != VoiceReleasing {
			t.Errorf("all-sound-off CC should release every voice, got state=%v", v.state)
		}
	}
}

func TestSynthPitchWheelAftertouchTempoDoNotPanic(t *testing.T) {
	s := NewSynth(DefaultConfig())
	if err := ParseSfzString(testSineSfz, s); err != nil {
		t.Fatalf("ParseSfzString failed: %v", err)
	}
	s.PitchWheel(0, 8192)
	s.Aftertouch(0, 64)
	s.Tempo(0, 0.5)
	if s.midi.BPM() != 120 {
		t.Errorf("Tempo(0.5s/quarter) should yield 120 BPM, got %f", s.midi.BPM())
	}
}

func TestSynthSetNumVoicesReconfiguresPool(t *testing.T) {
	s := NewSynth(DefaultConfig())
	s.SetNumVoices(4)
	if err := ParseSfzString(testSineSfz, s); err != nil {
		t.Fatalf("ParseSfzString failed: %v", err)
	}
	for i := 0; i < 6; i++ {
		s.NoteOn(0, 60+i, 100, 1)
	}
	if len(s.voices.Active()) != 4 {
		t.Errorf("a 4-voice pool should cap active voices at 4, got %d", len(s.voices.Active()))
	}
}

func TestSynthSaveRestoreStateRoundTrip(t *testing.T) {
	s := NewSynth(DefaultConfig())
	s.SetVolume(-6)
	s.SetScalaRootKey(69)
	s.SetTuningFrequency(442)
	saved := s.SaveState()

	s2 := NewSynth(DefaultConfig())
	if err := s2.RestoreState(saved); err != nil {
		t.Fatalf("RestoreState failed: %v", err)
	}
	restored := s2.SaveState()
	if restored.Volume != saved.Volume || restored.ScalaRootKey != saved.ScalaRootKey || restored.TuningFrequency != saved.TuningFrequency {
		t.Errorf("restored state mismatch: saved=%+v restored=%+v", saved, restored)
	}
}

func TestSynthOversamplingFactorRejectsNonPositive(t *testing.T) {
	s := NewSynth(DefaultConfig())
	s.SetOversamplingFactor(0)
	if s.config.OversamplingFactor != 1 {
		t.Errorf("oversampling factor < 1 should clamp to 1, got %d", s.config.OversamplingFactor)
	}
}
