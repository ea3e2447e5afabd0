package sfzcore

import "testing"

func TestPolyphonyGroupFull(t *testing.T) {
	g := newPolyphonyGroup(2)
	v1 := &Voice{ID: 1}
	v2 := &Voice{ID: 2}
	if g.full() {
		t.Fatal("empty group should not be full")
	}
	g.add(v1)
	if g.full() {
		t.Fatal("group at 1/2 should not be full")
	}
	g.add(v2)
	if !g.full() {
		t.Fatal("group at 2/2 should be full")
	}
}

func TestPolyphonyGroupUnlimited(t *testing.T) {
	g := newPolyphonyGroup(-1)
	for i := 0; i < 100; i++ {
		g.add(&Voice{ID: i})
	}
	if g.full() {
		t.Error("a group with limit -1 should never report full")
	}
}

func TestPolyphonyGroupRemove(t *testing.T) {
	g := newPolyphonyGroup(2)
	v1 := &Voice{ID: 1}
	v2 := &Voice{ID: 2}
	g.add(v1)
	g.add(v2)
	g.remove(v1)
	if g.full() {
		t.Error("group should no longer be full after removing a member")
	}
	if len(g.active) != 1 || g.active[0] != v2 {
		t.Errorf("remove left unexpected active set: %v", g.active)
	}
}

func TestPolyphonyGroupVictimStealFirst(t *testing.T) {
	g := newPolyphonyGroup(2)
	v1 := &Voice{ID: 1}
	v2 := &Voice{ID: 2}
	g.add(v1)
	g.add(v2)
	if v := g.victim(StealFirst, 44100); v != v1 {
		t.Error("StealFirst should always pick the first-added voice")
	}
}

func TestPolyphonyGroupVictimStealOldest(t *testing.T) {
	g := newPolyphonyGroup(2)
	v1 := &Voice{ID: 1, age: 1000}
	v2 := &Voice{ID: 2, age: 5000}
	g.add(v1)
	g.add(v2)
	if v := g.victim(StealOldest, 44100); v != v2 {
		t.Error("StealOldest should pick the voice with the largest age")
	}
}

func TestPolyphonyGroupVictimEnvelopeAndAge(t *testing.T) {
	g := newPolyphonyGroup(2)
	v1 := &Voice{ID: 1, age: 100}
	v1.ampEnv.current = 0.9 // loud, young
	v2 := &Voice{ID: 2, age: 100000}
	v2.ampEnv.current = 0.1 // quiet, old
	g.add(v1)
	g.add(v2)
	if v := g.victim(StealEnvelopeAndAge, 44100); v != v2 {
		t.Error("EnvelopeAndAge should prefer stealing the quieter, older voice")
	}
}

func TestPolyphonyGroupVictimEmptyIsNil(t *testing.T) {
	g := newPolyphonyGroup(2)
	if g.victim(StealFirst, 44100) != nil {
		t.Error("victim of an empty group should be nil")
	}
}

func newTestVoiceList(numVoices, maxEngineVoices int) *VoiceList {
	mod := NewModMatrix()
	return NewVoiceList(numVoices, mod, 44100, StealFirst, maxEngineVoices)
}

func TestVoiceListNoteOnActivates(t *testing.T) {
	vl := newTestVoiceList(4, 16)
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	midi := NewMidiState()
	v := vl.NoteOn(r, nil, midi, nil, 60, 100, 1, 1, -1, -1)
	if v == nil {
		t.Fatal("NoteOn should allocate a voice from a non-empty pool")
	}
	if len(vl.Active()) != 1 {
		t.Errorf("Active() count = %d, want 1", len(vl.Active()))
	}
}

func TestVoiceListPoolExhaustionSteals(t *testing.T) {
	vl := newTestVoiceList(2, 16)
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	midi := NewMidiState()
	vl.NoteOn(r, nil, midi, nil, 60, 100, 1, 1, -1, -1)
	vl.NoteOn(r, nil, midi, nil, 61, 100, 1, 2, -1, -1)
	// pool of 2 is now full; a third note-on must steal rather than fail
	v3 := vl.NoteOn(r, nil, midi, nil, 62, 100, 1, 3, -1, -1)
	if v3 == nil {
		t.Fatal("NoteOn should steal a voice rather than returning nil when the pool is exhausted")
	}
	if len(vl.Active()) != 2 {
		t.Errorf("Active() after stealing should still be capped at pool size, got %d", len(vl.Active()))
	}
}

func TestVoiceListRegionPolyphonyLimit(t *testing.T) {
	vl := newTestVoiceList(8, 16)
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	r.Polyphony = 1
	midi := NewMidiState()
	vl.NoteOn(r, nil, midi, nil, 60, 100, 1, 1, -1, -1)
	vl.NoteOn(r, nil, midi, nil, 61, 100, 1, 2, -1, -1)
	if len(vl.regionGroup(r).active) != 1 {
		t.Errorf("region polyphony=1 should cap that region's own active count at 1, got %d", len(vl.regionGroup(r).active))
	}
}

func TestVoiceListOffByChokesGroup(t *testing.T) {
	vl := newTestVoiceList(8, 16)
	openHat := NewRegion(0)
	openHat.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	openHat.Group = 1
	closedHat := NewRegion(1)
	closedHat.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	closedHat.HasOffBy = true
	closedHat.OffBy = 1

	midi := NewMidiState()
	vOpen := vl.NoteOn(openHat, nil, midi, nil, 42, 100, 1, 1, -1, -1)
	if vOpen.state != VoicePlaying {
		t.Fatal("open hat voice should start in playing state")
	}
	vl.NoteOn(closedHat, nil, midi, nil, 44, 100, 1, 2, -1, -1)
	if vOpen.state != VoiceReleasing {
		t.Errorf("off_by should choke the open-hat voice into release, state=%v", vOpen.state)
	}
}

func TestVoiceListSweepReclaimsFinishedVoices(t *testing.T) {
	vl := newTestVoiceList(2, 16)
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	midi := NewMidiState()
	v := vl.NoteOn(r, nil, midi, nil, 60, 100, 1, 1, -1, -1)
	v.Stop()
	vl.Sweep()
	if len(vl.Active()) != 0 {
		t.Error("Sweep should remove finished voices from Active()")
	}
	if len(vl.free) != 2 {
		t.Errorf("Sweep should return the finished voice to the free pool, free=%d want 2", len(vl.free))
	}
}

func TestVoiceListAllSoundOffReleasesEveryVoice(t *testing.T) {
	vl := newTestVoiceList(4, 16)
	r := NewRegion(0)
	r.ParseOpcode(ParseRawOpcode("sample", "*sine"))
	midi := NewMidiState()
	vl.NoteOn(r, nil, midi, nil, 60, 100, 1, 1, -1, -1)
	vl.NoteOn(r, nil, midi, nil, 64, 100, 1, 2, -1, -1)
	vl.AllSoundOff()
	for _, v := range vl.Active() {
		if v.state != VoiceReleasing {
			t.Errorf("AllSoundOff should put every active voice into release, got state=%v", v.state)
		}
	}
}
