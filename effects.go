package sfzcore

import "github.com/GeoffreyPlitt/debuggo"

var effectsDebug = debuggo.Debug("sfzcore:effects")

// Effect is the fixed plug-in interface §1 names ("built-in effects are
// plug-in modules behind a fixed interface"). An EffectBus owns one Effect
// instance and the input accumulator voices render into.
type Effect interface {
	Process(inL, inR, outL, outR []float64)
	SetSampleRate(sr float64)
}

// EffectFactory constructs an Effect by its <effect> header's "type" opcode.
type EffectFactory func(sampleRate float64) Effect

var effectFactories = map[string]EffectFactory{
	"reverb": func(sr float64) Effect { return NewFreeverbEffect(sr) },
}

// RegisterEffect lets a host add custom effect kinds beyond the built-ins.
func RegisterEffect(kind string, f EffectFactory) { effectFactories[kind] = f }

// EffectBus is one numbered effect send (index 0 is the always-present main
// bus, which has no Effect and simply passes its input through) plus the
// fxNtomain/fxNtomix mix levels §4.9 step 4 describes.
type EffectBus struct {
	Index    int
	effect   Effect
	inputL   []float64
	inputR   []float64
	outL     []float64
	outR     []float64
	ToMain   float64
	ToMix    float64
}

// NewEffectBus builds bus 0 (main, no effect) when kind == "", or a processed
// bus backed by kind's registered factory.
func NewEffectBus(index int, kind string, sampleRate float64, numFrames int) *EffectBus {
	b := &EffectBus{Index: index, ToMain: 1, ToMix: 0}
	b.Resize(numFrames)
	if kind != "" {
		if f, ok := effectFactories[kind]; ok {
			b.effect = f(sampleRate)
		} else {
			effectsDebug("unknown effect kind %q on bus %d, passing through dry", kind, index)
		}
	}
	return b
}

func (b *EffectBus) Resize(numFrames int) {
	if len(b.inputL) == numFrames {
		return
	}
	b.inputL = make([]float64, numFrames)
	b.inputR = make([]float64, numFrames)
	b.outL = make([]float64, numFrames)
	b.outR = make([]float64, numFrames)
}

func (b *EffectBus) Clear() {
	fill(0, b.inputL)
	fill(0, b.inputR)
}

// Accumulate adds gain*src into this bus's input accumulator.
func (b *EffectBus) Accumulate(srcL, srcR []float64, gain float64) {
	multiplyAdd1(gain, srcL, b.inputL)
	multiplyAdd1(gain, srcR, b.inputR)
}

// Process runs the bus's effect (or a dry pass-through for the main bus).
func (b *EffectBus) Process() {
	if b.effect == nil {
		copySpan(b.inputL, b.outL)
		copySpan(b.inputR, b.outR)
		return
	}
	b.effect.Process(b.inputL, b.inputR, b.outL, b.outR)
}

// MixOutputsTo adds this bus's processed output, scaled by ToMain/ToMix, into
// the engine's main and parallel-mix accumulators.
func (b *EffectBus) MixOutputsTo(mainL, mainR, mixL, mixR []float64) {
	if b.ToMain != 0 {
		multiplyAdd1(b.ToMain, b.outL, mainL)
		multiplyAdd1(b.ToMain, b.outR, mainR)
	}
	if b.ToMix != 0 {
		multiplyAdd1(b.ToMix, b.outL, mixL)
		multiplyAdd1(b.ToMix, b.outR, mixR)
	}
}

// --- Freeverb, adapted from the teacher's reverb.go into the Effect shape ---

const (
	freeverbNumCombs     = 8
	freeverbNumAllpasses = 4
	freeverbFixedGain    = 0.015
	freeverbScaleWet     = 3.0
	freeverbScaleDry     = 2.0
	freeverbScaleDamp    = 0.4
	freeverbScaleRoom    = 0.28
	freeverbOffsetRoom   = 0.7
	freeverbStereoSpread = 23
)

var freeverbCombDelays = [freeverbNumCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var freeverbAllpassDelays = [freeverbNumAllpasses]int{556, 441, 341, 225}

type combFilter struct {
	buffer      []float64
	idx         int
	feedback    float64
	damp1       float64
	damp2       float64
	filterStore float64
}

func newCombFilter(size int) *combFilter { return &combFilter{buffer: make([]float64, size)} }

func (c *combFilter) process(in float64) float64 {
	out := c.buffer[c.idx]
	c.filterStore = out*c.damp2 + c.filterStore*c.damp1
	c.buffer[c.idx] = in + c.filterStore*c.feedback
	c.idx++
	if c.idx >= len(c.buffer) {
		c.idx = 0
	}
	return out
}

func (c *combFilter) setDamp(v float64)     { c.damp1 = v; c.damp2 = 1 - v }
func (c *combFilter) setFeedback(v float64) { c.feedback = v }

type allpassFilter struct {
	buffer   []float64
	idx      int
	feedback float64
}

func newAllpassFilter(size int) *allpassFilter {
	return &allpassFilter{buffer: make([]float64, size), feedback: 0.5}
}

func (a *allpassFilter) process(in float64) float64 {
	bufout := a.buffer[a.idx]
	out := -in + bufout
	a.buffer[a.idx] = in + bufout*a.feedback
	a.idx++
	if a.idx >= len(a.buffer) {
		a.idx = 0
	}
	return out
}

// FreeverbEffect is the region's built-in "reverb" <effect> kind: the
// teacher's Freeverb algorithm unchanged, wrapped to satisfy the Effect
// interface so it plugs into any EffectBus.
type FreeverbEffect struct {
	combsL     [freeverbNumCombs]*combFilter
	combsR     [freeverbNumCombs]*combFilter
	allpassesL [freeverbNumAllpasses]*allpassFilter
	allpassesR [freeverbNumAllpasses]*allpassFilter

	roomSize, damp, wet, dry, width float64
	sampleRate                      float64
}

func NewFreeverbEffect(sampleRate float64) *FreeverbEffect {
	fv := &FreeverbEffect{roomSize: 0.5, damp: 0.5, wet: 1.0 / freeverbScaleWet, dry: 0, width: 1.0}
	fv.SetSampleRate(sampleRate)
	return fv
}

func (fv *FreeverbEffect) SetSampleRate(sr float64) {
	fv.sampleRate = sr
	scale := sr / 44100.0
	for i := 0; i < freeverbNumCombs; i++ {
		dl := int(float64(freeverbCombDelays[i]) * scale)
		fv.combsL[i] = newCombFilter(dl)
		fv.combsR[i] = newCombFilter(dl + freeverbStereoSpread)
	}
	for i := 0; i < freeverbNumAllpasses; i++ {
		dl := int(float64(freeverbAllpassDelays[i]) * scale)
		fv.allpassesL[i] = newAllpassFilter(dl)
		fv.allpassesR[i] = newAllpassFilter(dl + freeverbStereoSpread)
	}
	fv.updateParameters()
}

func (fv *FreeverbEffect) updateParameters() {
	roomScaled := fv.roomSize*freeverbScaleRoom + freeverbOffsetRoom
	dampScaled := fv.damp * freeverbScaleDamp
	for i := 0; i < freeverbNumCombs; i++ {
		fv.combsL[i].setFeedback(roomScaled)
		fv.combsR[i].setFeedback(roomScaled)
		fv.combsL[i].setDamp(dampScaled)
		fv.combsR[i].setDamp(dampScaled)
	}
}

func (fv *FreeverbEffect) SetRoomSize(v float64) { fv.roomSize = clampFloat(v, 0, 1); fv.updateParameters() }
func (fv *FreeverbEffect) SetDamping(v float64)  { fv.damp = clampFloat(v, 0, 1); fv.updateParameters() }
func (fv *FreeverbEffect) SetWet(v float64)      { fv.wet = clampFloat(v, 0, 1) * freeverbScaleWet }
func (fv *FreeverbEffect) SetDry(v float64)      { fv.dry = clampFloat(v, 0, 1) * freeverbScaleDry }
func (fv *FreeverbEffect) SetWidth(v float64)    { fv.width = clampFloat(v, 0, 1) }

func (fv *FreeverbEffect) Process(inL, inR, outL, outR []float64) {
	n := len(inL)
	for i := 0; i < n; i++ {
		input := (inL[i] + inR[i]) * freeverbFixedGain
		var l, r float64
		for c := 0; c < freeverbNumCombs; c++ {
			l += fv.combsL[c].process(input)
			r += fv.combsR[c].process(input)
		}
		for a := 0; a < freeverbNumAllpasses; a++ {
			l = fv.allpassesL[a].process(l)
			r = fv.allpassesR[a].process(r)
		}
		wetL := l * fv.wet
		wetR := r * fv.wet
		wet1 := wetL * (fv.width/2 + 0.5)
		wet2 := wetR * ((1 - fv.width) / 2)
		outL[i] = inL[i]*fv.dry + wet1 + wet2
		outR[i] = inR[i]*fv.dry + wet1 + wet2
	}
}
