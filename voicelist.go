package sfzcore

import "github.com/GeoffreyPlitt/debuggo"

var voiceListDebug = debuggo.Debug("sfzcore:voicelist")

// VoiceList is the engine's fixed-size voice pool, applying polyphony limits
// and the voice-stealing policy: a per-region limit and an engine-wide limit,
// each a polyphonyGroup. Voices are also tracked per group number for off_by
// choking; those groups have no limit, and there is no per-group or per-set
// polyphony limit.
type VoiceList struct {
	voices []*Voice
	free   []int

	policy     StealingPolicy
	sampleRate float64

	regionGroups map[int]*polyphonyGroup   // Region.ID -> limit group
	offGroups    map[int64]*polyphonyGroup // Region.Group -> choke group (off_by target)
	engine       *polyphonyGroup
}

// NewVoiceList allocates numVoices reusable Voice slots and an engine-wide
// polyphony ceiling.
func NewVoiceList(numVoices int, mod *ModMatrix, sampleRate float64, policy StealingPolicy, maxEngineVoices int) *VoiceList {
	vl := &VoiceList{
		policy:       policy,
		sampleRate:   sampleRate,
		regionGroups: map[int]*polyphonyGroup{},
		offGroups:    map[int64]*polyphonyGroup{},
		engine:       newPolyphonyGroup(maxEngineVoices),
	}
	vl.voices = make([]*Voice, numVoices)
	for i := range vl.voices {
		vl.voices[i] = NewVoice(i, mod, sampleRate)
		vl.free = append(vl.free, i)
	}
	return vl
}

func (vl *VoiceList) regionGroup(region *Region) *polyphonyGroup {
	g, ok := vl.regionGroups[region.ID]
	if !ok {
		g = newPolyphonyGroup(region.Polyphony)
		vl.regionGroups[region.ID] = g
	}
	return g
}

func (vl *VoiceList) offGroup(key int64) *polyphonyGroup {
	g, ok := vl.offGroups[key]
	if !ok {
		g = newPolyphonyGroup(-1)
		vl.offGroups[key] = g
	}
	return g
}

// Active returns the currently sounding voices (playing or releasing).
func (vl *VoiceList) Active() []*Voice {
	out := make([]*Voice, 0, len(vl.voices)-len(vl.free))
	for _, v := range vl.voices {
		if v.state == VoicePlaying || v.state == VoiceReleasing {
			out = append(out, v)
		}
	}
	return out
}

// allocate returns a free voice slot, stealing one per policy if the pool,
// the region's own limit, or the engine ceiling is exhausted. Returns nil
// if no voice could be freed (every candidate group is empty).
func (vl *VoiceList) allocate(region *Region) *Voice {
	rg := vl.regionGroup(region)

	if len(vl.free) == 0 || rg.full() || vl.engine.full() {
		victim := vl.chooseVictim(rg)
		if victim == nil {
			voiceListDebug("no voice available to steal for region %d", region.ID)
			return nil
		}
		vl.reclaim(victim)
	}

	idx := vl.free[len(vl.free)-1]
	vl.free = vl.free[:len(vl.free)-1]
	return vl.voices[idx]
}

// chooseVictim prefers stealing within the offending region's own group
// (honoring its own limit first), falling back to the engine-wide pool.
func (vl *VoiceList) chooseVictim(rg *polyphonyGroup) *Voice {
	if rg.full() {
		if v := rg.victim(vl.policy, vl.sampleRate); v != nil {
			return v
		}
	}
	return vl.engine.victim(vl.policy, vl.sampleRate)
}

func (vl *VoiceList) reclaim(v *Voice) {
	if v.region != nil {
		vl.regionGroup(v.region).remove(v)
		if v.region.Group != 0 {
			vl.offGroup(v.region.Group).remove(v)
		}
	}
	vl.engine.remove(v)
	v.Stop()
	v.state = VoiceIdle
	vl.free = append(vl.free, v.ID)
}

// NoteOn allocates (stealing if necessary) and starts a voice for region,
// choking any voices in region's off_by target group first.
func (vl *VoiceList) NoteOn(region *Region, handle *FileHandle, midi *MidiState, filePool *FilePool, note, velocity, channel int, randSeed int64, ampTargetID, pitchTargetID int) *Voice {
	if region.HasOffBy {
		for _, v := range vl.offGroup(region.OffBy).active {
			v.RegisterOffGroup()
		}
	}

	v := vl.allocate(region)
	if v == nil {
		return nil
	}
	v.Start(region, handle, midi, filePool, note, velocity, channel, randSeed, ampTargetID, pitchTargetID)

	vl.regionGroup(region).add(v)
	vl.engine.add(v)
	if region.Group != 0 {
		vl.offGroup(region.Group).add(v)
	}
	return v
}

// Sweep reclaims every finished voice back to the free pool; intended to be
// called once per render block after RenderBlock has run on all active
// voices.
func (vl *VoiceList) Sweep() {
	for _, v := range vl.voices {
		if v.state == VoiceFinished {
			vl.reclaim(v)
		}
	}
}

// AllSoundOff forces every active voice toward immediate silence (fast
// release), used by the MIDI "all notes off"/"all sound off" reset.
func (vl *VoiceList) AllSoundOff() {
	for _, v := range vl.Active() {
		v.RegisterOffGroup()
	}
}
