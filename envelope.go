package sfzcore

// ADSRParams are the user-facing envelope opcodes, expressed in seconds
// (delay/attack/hold/decay/release) except Sustain, a linear [0,1] level.
type ADSRParams struct {
	Delay   float64
	Attack  float64
	Hold    float64
	Decay   float64
	Sustain float64
	Release float64
}

// adsrState is the classic Delay->Attack->Hold->Decay->Sustain->Release->Done
// state machine from the original ADSREnvelope design, with all timing
// converted to sample counts at reset() time.
type adsrState int

const (
	adsrDelay adsrState = iota
	adsrAttack
	adsrHold
	adsrDecay
	adsrSustain
	adsrRelease
	adsrDone
)

// virtualZero is the release-segment threshold below which a voice is
// considered finished (§4.7's "decayed below a virtual-zero threshold").
const virtualZero = 0.0005

// ADSREnvelope is a per-voice sample-accurate envelope generator.
type ADSREnvelope struct {
	state adsrState

	delaySamples  int
	attackSamples int
	holdSamples   int
	decaySamples  int
	releaseSamples int

	sustain float64
	start   float64
	peak    float64

	current float64
	step    float64
	elapsed int

	releasePending    bool
	releaseDelayFrame int
	framesRendered    int
}

// Reset (re)initializes the envelope for a new note, converting every
// duration from seconds to samples at the given sample rate.
func (e *ADSREnvelope) Reset(p ADSRParams, sampleRate float64, start, depth float64) {
	e.delaySamples = secondsToSamples(p.Delay, sampleRate)
	e.attackSamples = secondsToSamples(p.Attack, sampleRate)
	e.holdSamples = secondsToSamples(p.Hold, sampleRate)
	e.decaySamples = secondsToSamples(p.Decay, sampleRate)
	e.releaseSamples = secondsToSamples(p.Release, sampleRate)
	e.sustain = clampFloat(p.Sustain, 0, 1) * depth
	e.start = start * depth
	e.peak = depth
	e.current = e.start
	e.elapsed = 0
	e.releasePending = false
	e.framesRendered = 0
	if e.delaySamples > 0 {
		e.state = adsrDelay
	} else if e.attackSamples > 0 {
		e.state = adsrAttack
		e.step = (e.peak - e.start) / float64(e.attackSamples)
	} else {
		e.state = adsrHold
		e.current = e.peak
	}
}

func secondsToSamples(s, sampleRate float64) int {
	if s <= 0 {
		return 0
	}
	n := int(s * sampleRate)
	if n < 1 {
		n = 1
	}
	return n
}

// StartRelease schedules the release segment to begin after releaseDelay
// more samples of the current block.
func (e *ADSREnvelope) StartRelease(releaseDelay int) {
	e.releasePending = true
	e.releaseDelayFrame = e.framesRendered + releaseDelay
}

// IsDone reports whether the envelope has fully decayed.
func (e *ADSREnvelope) IsDone() bool { return e.state == adsrDone }

// IsReleasing reports whether the release segment is active.
func (e *ADSREnvelope) IsReleasing() bool { return e.state == adsrRelease }

// GetNextValue advances the envelope by one sample and returns its level.
func (e *ADSREnvelope) GetNextValue() float64 {
	if e.releasePending && e.framesRendered >= e.releaseDelayFrame && e.state != adsrRelease && e.state != adsrDone {
		e.enterRelease()
	}

	switch e.state {
	case adsrDelay:
		e.current = e.start
		e.elapsed++
		if e.elapsed >= e.delaySamples {
			e.elapsed = 0
			if e.attackSamples > 0 {
				e.state = adsrAttack
				e.step = (e.peak - e.start) / float64(e.attackSamples)
			} else {
				e.state = adsrHold
				e.current = e.peak
			}
		}
	case adsrAttack:
		e.current += e.step
		e.elapsed++
		if e.elapsed >= e.attackSamples {
			e.current = e.peak
			e.elapsed = 0
			e.state = adsrHold
		}
	case adsrHold:
		e.current = e.peak
		e.elapsed++
		if e.elapsed >= e.holdSamples {
			e.elapsed = 0
			if e.decaySamples > 0 {
				e.state = adsrDecay
				e.step = (e.sustain - e.peak) / float64(e.decaySamples)
			} else {
				e.state = adsrSustain
				e.current = e.sustain
			}
		}
	case adsrDecay:
		e.current += e.step
		e.elapsed++
		if e.elapsed >= e.decaySamples {
			e.current = e.sustain
			e.state = adsrSustain
		}
	case adsrSustain:
		e.current = e.sustain
	case adsrRelease:
		e.current += e.step
		e.elapsed++
		if e.current <= virtualZero || e.elapsed >= e.releaseSamples {
			e.current = 0
			e.state = adsrDone
		}
	case adsrDone:
		e.current = 0
	}

	e.framesRendered++
	return e.current
}

func (e *ADSREnvelope) enterRelease() {
	e.state = adsrRelease
	e.elapsed = 0
	if e.releaseSamples > 0 {
		e.step = -e.current / float64(e.releaseSamples)
	} else {
		e.current = 0
		e.state = adsrDone
	}
}

// GetBlock fills out with consecutive envelope values.
func (e *ADSREnvelope) GetBlock(out []float64) {
	for i := range out {
		out[i] = e.GetNextValue()
	}
}

// --- Flex envelope: an arbitrary multi-stage breakpoint envelope ---

// FlexEGPoint is one (time, level) breakpoint of a flex envelope.
type FlexEGPoint struct {
	TimeSeconds float64
	Level       float64
	Shape       float64 // curvature; not read: FlexEnvelope interpolates every stage linearly
}

// FlexEGParams is a complete flex envelope definition.
type FlexEGParams struct {
	Points    []FlexEGPoint
	SustainAt int // index of the sustain point, -1 if none
	Loop      bool
}

// FlexEnvelope generates a sample-accurate multi-breakpoint envelope.
type FlexEnvelope struct {
	params         FlexEGParams
	sampleRate     float64
	segmentIndex   int
	segmentSamples int
	segmentElapsed int
	startLevel     float64
	endLevel       float64
	current        float64
	releasing      bool
	done           bool
}

func (f *FlexEnvelope) Reset(p FlexEGParams, sampleRate float64) {
	f.params = p
	f.sampleRate = sampleRate
	f.segmentIndex = 0
	f.segmentElapsed = 0
	f.releasing = false
	f.done = len(p.Points) == 0
	if !f.done {
		f.current = p.Points[0].Level
		f.startSegment(0)
	}
}

func (f *FlexEnvelope) startSegment(i int) {
	if i+1 >= len(f.params.Points) {
		f.done = true
		return
	}
	dt := f.params.Points[i+1].TimeSeconds - f.params.Points[i].TimeSeconds
	f.segmentSamples = secondsToSamples(dt, f.sampleRate)
	f.segmentElapsed = 0
	f.startLevel = f.params.Points[i].Level
	f.endLevel = f.params.Points[i+1].Level
}

func (f *FlexEnvelope) StartRelease() { f.releasing = true }

func (f *FlexEnvelope) IsDone() bool { return f.done }

func (f *FlexEnvelope) GetNextValue() float64 {
	if f.done || len(f.params.Points) == 0 {
		return f.current
	}
	if !f.releasing && f.params.SustainAt >= 0 && f.segmentIndex == f.params.SustainAt {
		return f.current
	}
	if f.segmentSamples <= 0 {
		f.current = f.endLevel
	} else {
		t := float64(f.segmentElapsed) / float64(f.segmentSamples)
		f.current = f.startLevel + t*(f.endLevel-f.startLevel)
	}
	f.segmentElapsed++
	if f.segmentElapsed >= f.segmentSamples {
		f.segmentIndex++
		f.startSegment(f.segmentIndex)
	}
	return f.current
}
