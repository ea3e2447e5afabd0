package sfzcore

import (
	"math"
	"math/rand"

	"github.com/GeoffreyPlitt/debuggo"
)

var voiceDebug = debuggo.Debug("sfzcore:voice")

// VoiceState is a Voice's coarse lifecycle stage.
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoicePlaying
	VoiceReleasing
	VoiceFinished
)

// sineGenerator is the built-in "*sine" generator region source (§4.4's
// "a small set of built-in generators" non-goal-adjacent feature carried
// over from original_source's WavetableOscillator for regions with no
// sample file).
type sineGenerator struct {
	phase float64
}

func (g *sineGenerator) render(freq, sampleRate float64, out []float64) {
	step := freq / sampleRate
	for i := range out {
		out[i] = sin2pi(g.phase)
		g.phase += step
		if g.phase >= 1 {
			g.phase -= 1
		}
	}
}

// Voice renders one sounding note from a Region against a shared FileHandle,
// resampling, enveloping and panning it into the engine's effect buses. A
// Voice never blocks: FilePool lookups only poll an atomic pointer.
type Voice struct {
	ID       int
	region   *Region
	handle   *FileHandle
	midi     *MidiState
	mod      *ModMatrix
	filePool *FilePool
	sampleRate float64

	note     int
	velocity int
	channel  int
	rng      *rand.Rand

	state VoiceState

	playPosition  float64 // fractional sample index into handle data
	pitchRatio    float64
	baseGain      float64
	pan           float64
	generator     *sineGenerator

	ampEnv    ADSREnvelope
	pitchEnv  *ADSREnvelope
	filterEnv *ADSREnvelope
	flexEnvs  []FlexEnvelope

	ampTargetID   int
	pitchTargetID int

	streamReq *streamRequest

	age int64 // samples since note-on, used by EnvelopeAndAge stealing

	panScratch []float64 // reused per-block pan span, avoids hot-path allocation
}

// NewVoice constructs an idle voice bound to a shared ModMatrix; callers
// reuse Voice values from a pool rather than allocating per note (§4.7 /
// §8's no-hot-path-allocation invariant).
func NewVoice(id int, mod *ModMatrix, sampleRate float64) *Voice {
	return &Voice{ID: id, mod: mod, sampleRate: sampleRate, state: VoiceIdle}
}

// Start activates the voice for a note-on against region, using handle for
// sample data (nil for generator regions), midi for CC/pitch lookups, and
// filePool to enqueue a background streaming request once playback crosses
// the handle's preloaded prefix. randSeed seeds every per-event random draw
// (offset, pitch, amplitude).
func (v *Voice) Start(region *Region, handle *FileHandle, midi *MidiState, filePool *FilePool, note, velocity, channel int, randSeed int64, ampTargetID, pitchTargetID int) {
	v.region = region
	v.handle = handle
	v.midi = midi
	v.filePool = filePool
	v.note = note
	v.velocity = velocity
	v.channel = channel
	v.rng = rand.New(rand.NewSource(randSeed))
	v.state = VoicePlaying
	v.age = 0
	v.ampTargetID = ampTargetID
	v.pitchTargetID = pitchTargetID
	v.streamReq = nil

	v.playPosition = float64(region.GetOffset(v.rng))
	v.pitchRatio = region.GetBasePitchVariation(note, velocity, v.rng)
	v.baseGain = region.GetBaseGain() * region.GetNoteGain(note, velocity) * region.GetAmpRandomGain(v.rng)
	v.pan = region.Pan

	if region.IsGenerator {
		v.generator = &sineGenerator{}
	} else {
		v.generator = nil
	}

	v.ampEnv.Reset(region.AmpEG, v.sampleRate, 0, 1)
	if region.PitchEG != nil {
		if v.pitchEnv == nil {
			v.pitchEnv = &ADSREnvelope{}
		}
		v.pitchEnv.Reset(*region.PitchEG, v.sampleRate, 0, 1)
	} else {
		v.pitchEnv = nil
	}
	if region.FilterEG != nil {
		if v.filterEnv == nil {
			v.filterEnv = &ADSREnvelope{}
		}
		v.filterEnv.Reset(*region.FilterEG, v.sampleRate, 0, 1)
	} else {
		v.filterEnv = nil
	}
	if len(region.FlexEGs) != len(v.flexEnvs) {
		v.flexEnvs = make([]FlexEnvelope, len(region.FlexEGs))
	}
	for i, p := range region.FlexEGs {
		v.flexEnvs[i].Reset(p, v.sampleRate)
	}

	if handle != nil {
		handle.Retain()
	}
	voiceDebug("voice %d started: note=%d vel=%d region=%d", v.ID, note, velocity, region.ID)
}

// RegisterNoteOff begins the release segment of every envelope after
// delaySamples, using the region's own release times. off_mode is not
// consulted here; only RegisterOffGroup applies it.
func (v *Voice) RegisterNoteOff(delaySamples int) {
	if v.state != VoicePlaying {
		return
	}
	v.state = VoiceReleasing
	v.ampEnv.StartRelease(delaySamples)
	if v.pitchEnv != nil {
		v.pitchEnv.StartRelease(delaySamples)
	}
	if v.filterEnv != nil {
		v.filterEnv.StartRelease(delaySamples)
	}
	for i := range v.flexEnvs {
		v.flexEnvs[i].StartRelease()
	}
}

// RegisterOffGroup triggers this voice's off_by fast-release, used by the
// polyphony group when a hi-hat open/close style choke fires (§4.8).
func (v *Voice) RegisterOffGroup() {
	if v.state == VoiceIdle || v.state == VoiceFinished {
		return
	}
	if v.region.OffMode == OffFast {
		forced := ADSRParams{Release: fastReleaseDuration}
		v.ampEnv.Reset(forced, v.sampleRate, v.ampEnv.current, 1)
		v.ampEnv.StartRelease(0)
	} else {
		v.RegisterNoteOff(0)
	}
	v.state = VoiceReleasing
}

// IsFinished reports whether the voice's amplitude envelope has fully
// decayed and it can be returned to the free pool.
func (v *Voice) IsFinished() bool {
	return v.state == VoiceFinished || (v.state != VoiceIdle && v.ampEnv.IsDone())
}

// AmpEnvelopeValue is the current linear amplitude envelope level, the
// numerator EnvelopeAndAge stealing compares across voices.
func (v *Voice) AmpEnvelopeValue() float64 { return v.ampEnv.current }

// Age returns samples elapsed since note-on.
func (v *Voice) Age() int64 { return v.age }

// sourceChannels returns the best available backing data for this voice:
// the streamed full file if published, otherwise the preloaded prefix. Once
// playback crosses the prefix boundary it enqueues a background streaming
// request exactly once (idempotent via v.streamReq) per §4.7 step 4.
func (v *Voice) sourceChannels() (l, r []float64, frames int) {
	if v.handle.FullData() != nil {
		full := v.handle.FullData()
		return full.Left(), full.Right(), v.handle.TotalFrames
	}
	pre := v.handle.PreloadedPrefix
	if v.streamReq == nil && v.filePool != nil && int(v.playPosition) >= len(pre.Left()) {
		v.streamReq, _ = v.filePool.RequestStream(v.handle)
	}
	return pre.Left(), pre.Right(), len(pre.Left())
}

// RenderBlock renders numFrames frames of this voice into outL/outR
// (already-allocated scratch spans), applying resampling, per-voice
// modulation, envelopes and panning. Returns false once the voice is
// finished so the caller can reclaim it.
func (v *Voice) RenderBlock(outL, outR []float64, interp InterpolatorKind) bool {
	n := len(outL)
	if v.state == VoiceIdle || v.state == VoiceFinished {
		fill(0, outL)
		fill(0, outR)
		return false
	}

	v.mod.BeginVoice(v.ID, v.region.ID, float64(v.velocity)/127.0)

	pitchMod := v.mod.GetModulation(v.pitchTargetID)
	ampMod := v.mod.GetModulation(v.ampTargetID)

	if v.generator != nil {
		freq := 440 * semitonesToRatio(float64(v.note-69)) * v.pitchRatio
		v.generator.render(freq, v.sampleRate, outL)
		copySpan(outL, outR)
	} else {
		l, r, frames := v.sourceChannels()
		for i := 0; i < n; i++ {
			ratio := v.pitchRatio
			if i < len(pitchMod) {
				ratio *= centsToRatio(pitchMod[i])
			}
			if !v.advanceLoop(int(v.playPosition), frames) {
				fill(0, outL[i:])
				fill(0, outR[i:])
				v.state = VoiceFinished
				break
			}
			idx := int(v.playPosition)
			frac := v.playPosition - float64(idx)

			outL[i] = interpolate(interp, l, idx, frac)
			outR[i] = interpolate(interp, r, idx, frac)
			v.playPosition += ratio
		}
	}

	for i := 0; i < n; i++ {
		g := v.baseGain
		ampEnv := v.ampEnv.GetNextValue()
		if i < len(ampMod) {
			g *= db2mag(ampMod[i])
		}
		g *= ampEnv
		outL[i] *= g
		outR[i] *= g
	}
	if len(v.panScratch) != n {
		v.panScratch = make([]float64, n)
	}
	fill(v.pan, v.panScratch)
	pan(v.panScratch, outL, outR)

	v.age += int64(n)
	if v.ampEnv.IsDone() {
		v.Stop()
	}
	return v.state != VoiceFinished
}

// Stop forces the voice to its finished state, releasing its file handle
// reference exactly once. Safe to call on an already-finished voice.
func (v *Voice) Stop() {
	if v.state == VoiceFinished {
		return
	}
	v.state = VoiceFinished
	if v.handle != nil {
		v.handle.Release()
		v.handle = nil
	}
	if v.streamReq != nil {
		v.streamReq.Cancel()
		v.streamReq = nil
	}
}

// advanceLoop applies the region's loop_mode at the current integer sample
// index: a looping voice whose index has passed loop_end (or the end of the
// data) has playPosition wrapped back into the loop. It returns false if the
// voice has run off the end of the data with no loop to wrap into.
func (v *Voice) advanceLoop(idx, frames int) bool {
	end := v.region.End
	if end < 0 || int(end) >= frames {
		end = int64(frames) - 1
	}
	switch v.region.LoopMode {
	case LoopContinuous, LoopSustain:
		loopLen := v.region.LoopEnd - v.region.LoopStart
		if loopLen > 0 && (int64(idx) > v.region.LoopEnd || int64(idx) > end) {
			v.playPosition = float64(v.region.LoopStart) + math.Mod(v.playPosition-float64(v.region.LoopStart), float64(loopLen))
			return true
		}
	}
	return int64(idx) <= end
}

func sin2pi(phase float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}
