package sfzcore

import "testing"

func TestNewRegionDefaults(t *testing.T) {
	r := NewRegion(0)
	if r.KeyRange != (intRange{0, 127}) {
		t.Errorf("default KeyRange = %v, want 0..127", r.KeyRange)
	}
	if r.SwLoKey != 0 || r.SwHiKey != 127 {
		t.Errorf("default sw_lokey/sw_hikey = %d/%d, want 0/127 (full keyboard)", r.SwLoKey, r.SwHiKey)
	}
	if r.Trigger != TriggerAttack {
		t.Errorf("default trigger = %v, want attack", r.Trigger)
	}
	if r.AmpEG.Sustain != 1 {
		t.Errorf("default ampeg_sustain = %f, want 1", r.AmpEG.Sustain)
	}
	if r.GainToEffectBus[0] != 1 {
		t.Errorf("default directtomain gain = %f, want 1", r.GainToEffectBus[0])
	}
}

func TestRegionParseOpcodeBasic(t *testing.T) {
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("lokey", "36"))
	r.ParseOpcode(ParseRawOpcode("hikey", "48"))
	r.ParseOpcode(ParseRawOpcode("sample", "kick.wav"))
	r.ParseOpcode(ParseRawOpcode("ampeg_attack", "0.01"))

	if r.KeyRange != (intRange{36, 48}) {
		t.Errorf("KeyRange = %v, want 36..48", r.KeyRange)
	}
	if r.SamplePath != "kick.wav" {
		t.Errorf("SamplePath = %q", r.SamplePath)
	}
	if r.AmpEG.Attack != 0.01 {
		t.Errorf("AmpEG.Attack = %f, want 0.01", r.AmpEG.Attack)
	}
}

func TestRegionParseOpcodeGeneratorSample(t *testing.T) {
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	if !r.IsGenerator || r.GeneratorTag != "*sine" {
		t.Errorf("generator sample not recognized: IsGenerator=%v tag=%q", r.IsGenerator, r.GeneratorTag)
	}
}

func TestRegionParseOpcodeKeyOpcodeSetsCenterAndRange(t *testing.T) {
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("key", "60"))
	if r.KeyRange != (intRange{60, 60}) || r.PitchKeycenter != 60 {
		t.Errorf("key=60 should pin KeyRange and PitchKeycenter, got KeyRange=%v center=%d", r.KeyRange, r.PitchKeycenter)
	}
}

func TestRegionParseOpcodeNoteName(t *testing.T) {
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("key", "c4"))
	if r.PitchKeycenter != 60 {
		t.Errorf("c4 should parse to MIDI key 60, got %d", r.PitchKeycenter)
	}
	r2 := NewRegion(0)
	r2.ParseOpcode(ParseRawOpcode("key", "c#4"))
	if r2.PitchKeycenter != 61 {
		t.Errorf("c#4 should parse to MIDI key 61, got %d", r2.PitchKeycenter)
	}
}

func TestRegionParseOpcodeUnknownReported(t *testing.T) {
	r := NewRegion(0)
	ok := r.ParseOpcode(ParseRawOpcode("totally_made_up", "1"))
	if ok {
		t.Error("unknown opcode should return false")
	}
	if len(r.UnknownOpcodes) != 1 || r.UnknownOpcodes[0] != "totally_made_up" {
		t.Errorf("unknown opcode should be recorded, got %v", r.UnknownOpcodes)
	}
}

func TestRegionParseOpcodeLoccHiccConditions(t *testing.T) {
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("locc1", "64"))
	r.ParseOpcode(ParseRawOpcode("hicc1", "127"))
	rng := r.CCConditions[1]
	if rng.Lo != 64 || rng.Hi != 127 {
		t.Errorf("CCConditions[1] = %v, want 64..127", rng)
	}
}

func TestRegionParseOpcodeFxToMain(t *testing.T) {
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("fxtomain1", "50"))
	if len(r.GainToEffectBus) < 2 || r.GainToEffectBus[1] != 0.5 {
		t.Errorf("fxtomain1=50 should set GainToEffectBus[1]=0.5, got %v", r.GainToEffectBus)
	}
}

func TestRegisterNoteOnAttackTrigger(t *testing.T) {
	r := NewRegion(0)
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 100, 0.5); !fired {
		t.Error("attack-triggered region in range should fire on note-on")
	}
}

func TestRegisterNoteOnOutOfKeyRange(t *testing.T) {
	r := NewRegion(0)
	r.KeyRange = intRange{36, 48}
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 100, 0.5); fired {
		t.Error("note outside key range should not fire")
	}
}

func TestRegisterNoteOnVelocityRange(t *testing.T) {
	r := NewRegion(0)
	r.VelRange = intRange{64, 127}
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 30, 0.5); fired {
		t.Error("velocity below range should not fire")
	}
	if fired := r.RegisterNoteOn(60, 100, 0.5); !fired {
		t.Error("velocity within range should fire")
	}
}

func TestRegisterNoteOnFirstTrigger(t *testing.T) {
	r := NewRegion(0)
	r.Trigger = TriggerFirst
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 100, 0.5); !fired {
		t.Error("first note should fire a 'first' trigger region")
	}
	if fired := r.RegisterNoteOn(64, 100, 0.5); fired {
		t.Error("a second simultaneous note should not re-fire a 'first' trigger region")
	}
}

func TestRegisterNoteOnLegatoTrigger(t *testing.T) {
	r := NewRegion(0)
	r.Trigger = TriggerLegato
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 100, 0.5); fired {
		t.Error("legato trigger should not fire on the first note")
	}
	if fired := r.RegisterNoteOn(64, 100, 0.5); !fired {
		t.Error("legato trigger should fire on a subsequent overlapping note")
	}
}

func TestRegisterNoteOnReleaseTriggerNeverFiresOnNoteOn(t *testing.T) {
	r := NewRegion(0)
	r.Trigger = TriggerRelease
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 100, 0.5); fired {
		t.Error("release trigger must never fire on note-on")
	}
}

func TestRegisterNoteOffReleaseTrigger(t *testing.T) {
	r := NewRegion(0)
	r.Trigger = TriggerRelease
	r.PrimeCCState([numCCs]float64{})
	r.RegisterNoteOn(60, 100, 0.5)
	if fired := r.RegisterNoteOff(60, 0, 0.5, true); !fired {
		t.Error("release trigger should fire on note-off when an attack voice is playing")
	}
}

func TestRegisterNoteOffReleaseTriggerRequiresAttackVoiceOrRtDead(t *testing.T) {
	r := NewRegion(0)
	r.Trigger = TriggerRelease
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOff(60, 0, 0.5, false); fired {
		t.Error("release trigger with no attack voice playing and rt_dead unset should not fire")
	}
	r.RtDead = true
	if fired := r.RegisterNoteOff(60, 0, 0.5, false); !fired {
		t.Error("rt_dead release trigger should fire even with no attack voice playing")
	}
}

func TestRegionRandRangeGating(t *testing.T) {
	r := NewRegion(0)
	r.HasRandRange = true
	r.RandRange = halfOpenRange{0, 0.5}
	r.PrimeCCState([numCCs]float64{})
	if fired := r.RegisterNoteOn(60, 100, 0.75); fired {
		t.Error("random draw outside lorand/hirand should not fire")
	}
	if fired := r.RegisterNoteOn(60, 100, 0.25); !fired {
		t.Error("random draw inside lorand/hirand should fire")
	}
}

func TestRegionCCConditionGating(t *testing.T) {
	r := NewRegion(0)
	r.CCConditions[1] = intRange{64, 127}
	r.ccSwitched = make([]bool, numCCs)
	r.PrimeCCState([numCCs]float64{1: 0}) // CC1 currently at 0, below 64
	if fired := r.RegisterNoteOn(60, 100, 0.5); fired {
		t.Error("note-on should not fire while an unmet locc/hicc condition is latched")
	}
	r.RegisterCC(1, 100)
	if fired := r.RegisterNoteOn(60, 100, 0.5); !fired {
		t.Error("note-on should fire once the CC condition is satisfied")
	}
}

func TestRegionSustainPedalDelayedRelease(t *testing.T) {
	r := NewRegion(0)
	r.RegisterCC(sustainCC, 127) // pedal down
	if !r.SustainHeld() {
		t.Fatal("sustain pedal should be latched held")
	}
	r.QueueDelayedRelease(60, 0)
	if len(r.DrainDelayedReleases()) != 1 {
		t.Error("queued delayed release should be returned by DrainDelayedReleases")
	}
	if len(r.delayedReleasesQ) != 0 {
		t.Error("DrainDelayedReleases should clear the queue")
	}
}

func TestRegionKeyCrossfadeGain(t *testing.T) {
	r := NewRegion(0)
	r.XFInKey = intRange{60, 64}
	r.XFCurve = CurveGain
	if g := r.keyCrossfadeGain(60); g > 0.01 {
		t.Errorf("crossfade-in gain at the bottom edge should be ~0, got %f", g)
	}
	if g := r.keyCrossfadeGain(64); g < 0.99 {
		t.Errorf("crossfade-in gain at the top edge should be ~1, got %f", g)
	}
}

func TestRegionVelocityCurveDefaultIsSquared(t *testing.T) {
	r := NewRegion(0)
	g := r.velocityCurveGain(127)
	if g < 0.99 {
		t.Errorf("default velocity curve at vel=127 should be ~1, got %f", g)
	}
	g64 := r.velocityCurveGain(64)
	if g64 <= 0 || g64 >= 1 {
		t.Errorf("default velocity curve at vel=64 should be strictly between 0 and 1, got %f", g64)
	}
}

func TestRegionGetBaseGain(t *testing.T) {
	r := NewRegion(0)
	r.VolumeDB = -6
	r.AmplitudeLinear = 0.5
	want := db2mag(-6) * 0.5
	if g := r.GetBaseGain(); g != want {
		t.Errorf("GetBaseGain = %f, want %f", g, want)
	}
}
