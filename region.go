package sfzcore

import (
	"math"
	"math/rand"

	"github.com/GeoffreyPlitt/debuggo"
)

var regionDebug = debuggo.Debug("sfzcore:region")

// TriggerKind classifies when a region is eligible to fire a voice.
type TriggerKind int

const (
	TriggerAttack TriggerKind = iota
	TriggerFirst
	TriggerLegato
	TriggerRelease
	TriggerReleaseKey
)

// LoopMode mirrors the SFZ loop_mode opcode.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopOneShot
	LoopContinuous
	LoopSustain
)

// CrossfadeCurve selects the interpolation law for xfin/xfout ranges.
type CrossfadeCurve int

const (
	CurvePower CrossfadeCurve = iota // equal-power: sqrt(x) / sqrt(1-x)
	CurveGain                        // linear: x / (1-x)
)

// intRange is an inclusive [Lo, Hi] predicate range.
type intRange struct{ Lo, Hi int }

func (r intRange) contains(v int) bool { return v >= r.Lo && v <= r.Hi }

type floatRange struct{ Lo, Hi float64 }

func (r floatRange) contains(v float64) bool { return v >= r.Lo && v <= r.Hi }

// halfOpenRange implements the [lo, hi) semantics random draws use.
type halfOpenRange struct{ Lo, Hi float64 }

func (r halfOpenRange) contains(v float64) bool {
	if r.Lo == r.Hi {
		return v == r.Lo
	}
	return v >= r.Lo && v < r.Hi
}

// ModConnection is one ModMatrix edge as declared by a region's opcodes.
type ModConnection struct {
	SourceKey  string
	TargetKey  string
	Depth      float64
	VelToDepth float64
}

// delayedRelease is a note-off deferred behind the sustain pedal.
type delayedRelease struct {
	note     int
	velocity int
}

// velocityPoint is one piecewise velocity-curve control point.
type velocityPoint struct {
	velocity int
	gain     float64
}

// Region is one immutable <region> instrument rule, plus the per-event
// latched predicate state the dispatcher mutates on the MIDI/control thread.
type Region struct {
	ID int

	// Source
	SamplePath   string
	IsGenerator  bool
	GeneratorTag string // e.g. "*sine", "*silence"
	Wavetable    bool

	// Trigger predicates (all ANDed)
	KeyRange     intRange
	VelRange     intRange
	ChannelRange intRange
	CCConditions map[int]intRange
	BendRange    intRange
	AftertouchRange intRange
	BPMRange     floatRange
	HasBPMRange  bool
	RandRange    halfOpenRange
	HasRandRange bool

	SeqLength   int
	SeqPosition int

	SwLast     int // -1 if unset
	SwLoKey    int
	SwHiKey    int
	SwDown     int
	SwUp       int
	SwPrevious int
	SwDefault  int

	Trigger TriggerKind

	// Playback
	Offset       int64
	OffsetRandom int64
	End          int64
	LoopMode     LoopMode
	LoopStart    int64
	LoopEnd      int64
	PitchKeycenter int
	PitchKeytrack  float64 // cents per semitone, default 100
	PitchVeltrack  float64 // cents, default 0
	PitchRandom    float64 // cents
	Transpose      int     // semitones
	Tune           float64 // cents

	// Amplitude shaping
	VolumeDB       float64
	AmplitudeLinear float64
	Pan            float64 // [-1,1]
	Width          float64 // [-1,1]
	Position       float64 // [-1,1]
	AmpKeytrack    float64 // dB per semitone, default 0
	AmpKeycenter   int
	AmpRandomDB    float64

	XFInKey, XFOutKey   intRange
	XFInVel, XFOutVel   intRange
	XFInCC, XFOutCC     map[int]intRange
	XFCurve             CrossfadeCurve
	VelocityCurve       []velocityPoint // empty -> default v^2

	// Envelopes
	AmpEG    ADSRParams
	PitchEG  *ADSRParams
	FilterEG *ADSRParams
	FlexEGs  []FlexEGParams

	// Modulators
	Connections []ModConnection

	AmpLFOFreq    float64
	AmpLFODepth   float64 // dB
	PitchLFOFreq  float64
	PitchLFODepth float64          // cents
	AmpOnCC       map[int]float64  // cc -> dB depth
	PitchOnCC     map[int]float64  // cc -> cents depth

	// Grouping
	Group      int64
	OffBy      int64
	HasOffBy   bool
	OffMode    OffMode
	Polyphony  int // -1 = unlimited

	// Effect bus sends: index 0 = main ("directtomain"), 1..N = fxtomainN.
	GainToEffectBus []float64

	RtDecayDBPerSecond float64
	RtDead             bool

	UnknownOpcodes []string

	// --- Per-event latched state, mutated by the dispatcher only ---
	keySwitched         bool
	previousKeySwitched bool
	sequenceSwitched    bool
	pitchSwitched       bool
	bpmSwitched         bool
	aftertouchSwitched  bool
	ccSwitched          []bool
	allCCSwitched       bool

	activeNotesInRange int
	sequenceCounter    int
	delayedReleasesQ   []delayedRelease

	lastKeyswitchSeen int // most recent sw_last-style key pressed anywhere
	previousNoteSeen  int
	sustainHeld       bool
}

// OffMode mirrors off_mode.
type OffMode int

const (
	OffFast OffMode = iota
	OffNormal
)

const fastReleaseDuration = 0.01 // seconds; §9 Open Question resolution

// NewRegion returns a region with every SFZ default applied.
func NewRegion(id int) *Region {
	r := &Region{
		ID:             id,
		KeyRange:       intRange{0, 127},
		VelRange:       intRange{0, 127},
		ChannelRange:   intRange{1, 16},
		CCConditions:   map[int]intRange{},
		BendRange:      intRange{-8192, 8192},
		AftertouchRange: intRange{0, 127},
		SeqLength:      1,
		SeqPosition:    1,
		SwLast:         -1,
		SwLoKey:        0,
		SwHiKey:        127,
		SwDown:         -1,
		SwUp:           -1,
		SwPrevious:     -1,
		SwDefault:      -1,
		Trigger:        TriggerAttack,
		End:            -1, // -1 = full sample length, resolved against FilePool data
		LoopMode:       LoopNone,
		PitchKeytrack:  100,
		AmplitudeLinear: 1,
		AmpKeycenter:   60,
		PitchKeycenter: 60,
		XFInKey:        intRange{0, 0},
		XFOutKey:       intRange{127, 127},
		XFInVel:        intRange{0, 0},
		XFOutVel:       intRange{127, 127},
		XFInCC:         map[int]intRange{},
		XFOutCC:        map[int]intRange{},
		Polyphony:      -1,
		OffMode:        OffFast,
		keySwitched:         true,
		previousKeySwitched: true,
		sequenceSwitched:    true,
		pitchSwitched:       true,
		bpmSwitched:         true,
		aftertouchSwitched:  true,
		ccSwitched:     make([]bool, numCCs),
		allCCSwitched:  true,
		lastKeyswitchSeen: -1,
		previousNoteSeen:  -1,
		GainToEffectBus: []float64{1}, // bus 0 (main) at full gain by default
		AmpOnCC:         map[int]float64{},
		PitchOnCC:       map[int]float64{},
	}
	r.AmpEG = ADSRParams{Sustain: 1}
	return r
}

// ParseOpcode classifies one opcode into the region's typed fields.
// Malformed values are clamped/dropped per §4.5's best-effort semantics;
// unrecognized opcodes are retained for reporting and ParseOpcode returns
// false for them.
func (r *Region) ParseOpcode(op RawOpcode) bool {
	switch op.Name {
	case "sample":
		r.SamplePath = op.Value
		if len(op.Value) > 0 && op.Value[0] == '*' {
			r.IsGenerator = true
			r.GeneratorTag = op.Value
		}
	case "wavetable":
		r.Wavetable = op.Value == "1" || op.Value == "on"
	case "lokey":
		r.KeyRange.Lo = parseKey(op.Value, r.KeyRange.Lo)
	case "hikey":
		r.KeyRange.Hi = parseKey(op.Value, r.KeyRange.Hi)
	case "key":
		k := parseKey(op.Value, -1)
		if k >= 0 {
			r.KeyRange = intRange{k, k}
			r.PitchKeycenter = k
		}
	case "lovel":
		r.VelRange.Lo, _ = parseOpInt(op.Value, r.VelRange.Lo)
	case "hivel":
		r.VelRange.Hi, _ = parseOpInt(op.Value, r.VelRange.Hi)
	case "lochan":
		r.ChannelRange.Lo, _ = parseOpInt(op.Value, r.ChannelRange.Lo)
	case "hichan":
		r.ChannelRange.Hi, _ = parseOpInt(op.Value, r.ChannelRange.Hi)
	case "locc":
		if op.HasParameter {
			lo, _ := parseOpInt(op.Value, 0)
			cr := r.CCConditions[op.Parameter]
			cr.Lo = lo
			if cr.Hi == 0 {
				cr.Hi = 127
			}
			r.CCConditions[op.Parameter] = cr
		}
	case "hicc":
		if op.HasParameter {
			hi, _ := parseOpInt(op.Value, 127)
			cr := r.CCConditions[op.Parameter]
			cr.Hi = hi
			r.CCConditions[op.Parameter] = cr
		}
	case "lobend":
		r.BendRange.Lo, _ = parseOpInt(op.Value, r.BendRange.Lo)
	case "hibend":
		r.BendRange.Hi, _ = parseOpInt(op.Value, r.BendRange.Hi)
	case "lochanaft":
		r.AftertouchRange.Lo, _ = parseOpInt(op.Value, r.AftertouchRange.Lo)
	case "hichanaft":
		r.AftertouchRange.Hi, _ = parseOpInt(op.Value, r.AftertouchRange.Hi)
	case "lobpm":
		r.BPMRange.Lo, _ = parseOpFloat(op.Value, r.BPMRange.Lo)
		r.HasBPMRange = true
	case "hibpm":
		r.BPMRange.Hi, _ = parseOpFloat(op.Value, r.BPMRange.Hi)
		r.HasBPMRange = true
	case "lorand":
		r.RandRange.Lo, _ = parseOpFloat(op.Value, r.RandRange.Lo)
		r.HasRandRange = true
	case "hirand":
		r.RandRange.Hi, _ = parseOpFloat(op.Value, r.RandRange.Hi)
		r.HasRandRange = true
	case "seq_length":
		r.SeqLength, _ = parseOpInt(op.Value, r.SeqLength)
	case "seq_position":
		r.SeqPosition, _ = parseOpInt(op.Value, r.SeqPosition)
	case "sw_last":
		r.SwLast, _ = parseOpInt(op.Value, r.SwLast)
	case "sw_lokey":
		r.SwLoKey, _ = parseOpInt(op.Value, r.SwLoKey)
	case "sw_hikey":
		r.SwHiKey, _ = parseOpInt(op.Value, r.SwHiKey)
	case "sw_down":
		r.SwDown, _ = parseOpInt(op.Value, r.SwDown)
	case "sw_up":
		r.SwUp, _ = parseOpInt(op.Value, r.SwUp)
	case "sw_previous":
		r.SwPrevious, _ = parseOpInt(op.Value, r.SwPrevious)
	case "sw_default":
		r.SwDefault, _ = parseOpInt(op.Value, r.SwDefault)
	case "trigger":
		r.Trigger = parseTrigger(op.Value)
	case "offset":
		r.Offset = parseInt64(op.Value, r.Offset)
	case "offset_random":
		r.OffsetRandom = parseInt64(op.Value, r.OffsetRandom)
	case "end":
		r.End = parseInt64(op.Value, r.End)
	case "loop_mode":
		r.LoopMode = parseLoopMode(op.Value)
	case "loop_start":
		r.LoopStart = parseInt64(op.Value, r.LoopStart)
	case "loop_end":
		r.LoopEnd = parseInt64(op.Value, r.LoopEnd)
	case "pitch_keycenter":
		r.PitchKeycenter = parseKey(op.Value, r.PitchKeycenter)
	case "pitch_keytrack":
		r.PitchKeytrack, _ = parseOpFloat(op.Value, r.PitchKeytrack)
	case "pitch_veltrack":
		r.PitchVeltrack, _ = parseOpFloat(op.Value, r.PitchVeltrack)
	case "pitch_random":
		r.PitchRandom, _ = parseOpFloat(op.Value, r.PitchRandom)
	case "transpose":
		r.Transpose, _ = parseOpInt(op.Value, r.Transpose)
	case "tune":
		r.Tune, _ = parseOpFloat(op.Value, r.Tune)
	case "volume":
		r.VolumeDB, _ = parseOpFloat(op.Value, r.VolumeDB)
	case "amplitude":
		v, ok := parseOpFloat(op.Value, r.AmplitudeLinear*100)
		if ok {
			r.AmplitudeLinear = v / 100
		}
	case "pan":
		v, ok := parseOpFloat(op.Value, 0)
		if ok {
			r.Pan = clampFloat(v/100, -1, 1)
		}
	case "width":
		v, ok := parseOpFloat(op.Value, 0)
		if ok {
			r.Width = clampFloat(v/100, -1, 1)
		}
	case "position":
		v, ok := parseOpFloat(op.Value, 0)
		if ok {
			r.Position = clampFloat(v/100, -1, 1)
		}
	case "amp_keytrack":
		r.AmpKeytrack, _ = parseOpFloat(op.Value, r.AmpKeytrack)
	case "amp_keycenter":
		r.AmpKeycenter = parseKey(op.Value, r.AmpKeycenter)
	case "amp_random":
		r.AmpRandomDB, _ = parseOpFloat(op.Value, r.AmpRandomDB)
	case "xfin_lokey":
		r.XFInKey.Lo, _ = parseOpInt(op.Value, r.XFInKey.Lo)
	case "xfin_hikey":
		r.XFInKey.Hi, _ = parseOpInt(op.Value, r.XFInKey.Hi)
	case "xfout_lokey":
		r.XFOutKey.Lo, _ = parseOpInt(op.Value, r.XFOutKey.Lo)
	case "xfout_hikey":
		r.XFOutKey.Hi, _ = parseOpInt(op.Value, r.XFOutKey.Hi)
	case "xfin_lovel":
		r.XFInVel.Lo, _ = parseOpInt(op.Value, r.XFInVel.Lo)
	case "xfin_hivel":
		r.XFInVel.Hi, _ = parseOpInt(op.Value, r.XFInVel.Hi)
	case "xfout_lovel":
		r.XFOutVel.Lo, _ = parseOpInt(op.Value, r.XFOutVel.Lo)
	case "xfout_hivel":
		r.XFOutVel.Hi, _ = parseOpInt(op.Value, r.XFOutVel.Hi)
	case "xf_keycurve":
		r.XFCurve = parseCurve(op.Value)
	case "xf_velcurve":
		r.XFCurve = parseCurve(op.Value)
	case "xf_cccurve":
		r.XFCurve = parseCurve(op.Value)
	case "ampeg_attack":
		r.AmpEG.Attack, _ = parseOpFloat(op.Value, r.AmpEG.Attack)
	case "ampeg_decay":
		r.AmpEG.Decay, _ = parseOpFloat(op.Value, r.AmpEG.Decay)
	case "ampeg_delay":
		r.AmpEG.Delay, _ = parseOpFloat(op.Value, r.AmpEG.Delay)
	case "ampeg_hold":
		r.AmpEG.Hold, _ = parseOpFloat(op.Value, r.AmpEG.Hold)
	case "ampeg_sustain":
		v, ok := parseOpFloat(op.Value, r.AmpEG.Sustain*100)
		if ok {
			r.AmpEG.Sustain = clampFloat(v/100, 0, 1)
		}
	case "ampeg_release":
		r.AmpEG.Release, _ = parseOpFloat(op.Value, r.AmpEG.Release)
	case "rt_decay":
		r.RtDecayDBPerSecond, _ = parseOpFloat(op.Value, r.RtDecayDBPerSecond)
	case "rt_dead":
		r.RtDead = op.Value == "1" || op.Value == "on"
	case "group":
		r.Group = parseInt64(op.Value, r.Group)
	case "off_by":
		r.OffBy = parseInt64(op.Value, r.OffBy)
		r.HasOffBy = true
	case "off_mode":
		if op.Value == "normal" {
			r.OffMode = OffNormal
		} else {
			r.OffMode = OffFast
		}
	case "polyphony":
		r.Polyphony, _ = parseOpInt(op.Value, r.Polyphony)
	case "directtomain":
		v, ok := parseOpFloat(op.Value, r.GainToEffectBus[0]*100)
		if ok {
			r.GainToEffectBus[0] = v / 100
		}
	case "amplfo_freq":
		r.AmpLFOFreq, _ = parseOpFloat(op.Value, r.AmpLFOFreq)
	case "amplfo_depth":
		r.AmpLFODepth, _ = parseOpFloat(op.Value, r.AmpLFODepth)
	case "pitchlfo_freq":
		r.PitchLFOFreq, _ = parseOpFloat(op.Value, r.PitchLFOFreq)
	case "pitchlfo_depth":
		r.PitchLFODepth, _ = parseOpFloat(op.Value, r.PitchLFODepth)
	case "amplitude_oncc":
		if op.HasParameter {
			v, _ := parseOpFloat(op.Value, 0)
			r.AmpOnCC[op.Parameter] = v
		}
	case "pitch_oncc":
		if op.HasParameter {
			v, _ := parseOpFloat(op.Value, 0)
			r.PitchOnCC[op.Parameter] = v
		}
	default:
		if op.HasParameter && op.Name == "fxtomain" {
			r.setEffectSend(op.Parameter, op.Value)
			return true
		}
		r.UnknownOpcodes = append(r.UnknownOpcodes, op.Name)
		return false
	}
	return true
}

func (r *Region) setEffectSend(bus int, value string) {
	for len(r.GainToEffectBus) <= bus {
		r.GainToEffectBus = append(r.GainToEffectBus, 0)
	}
	v, ok := parseOpFloat(value, 0)
	if ok {
		r.GainToEffectBus[bus] = v / 100
	}
}

func parseKey(v string, def int) int {
	if n, ok := parseOpInt(v, def); ok {
		return n
	}
	if note, ok := noteNameToKey(v); ok {
		return note
	}
	return def
}

func parseInt64(v string, def int64) int64 {
	if n, ok := parseOpInt(v, int(def)); ok {
		return int64(n)
	}
	return def
}

func parseTrigger(v string) TriggerKind {
	switch v {
	case "first":
		return TriggerFirst
	case "legato":
		return TriggerLegato
	case "release":
		return TriggerRelease
	case "release_key":
		return TriggerReleaseKey
	default:
		return TriggerAttack
	}
}

func parseLoopMode(v string) LoopMode {
	switch v {
	case "one_shot":
		return LoopOneShot
	case "loop_continuous":
		return LoopContinuous
	case "loop_sustain":
		return LoopSustain
	default:
		return LoopNone
	}
}

func parseCurve(v string) CrossfadeCurve {
	if v == "gain" {
		return CurveGain
	}
	return CurvePower
}

var noteNames = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// noteNameToKey parses SFZ note names like "c4", "c#4", "db3" into a MIDI key.
func noteNameToKey(v string) (int, bool) {
	if len(v) < 2 {
		return 0, false
	}
	base, ok := noteNames[toLowerByte(v[0])]
	if !ok {
		return 0, false
	}
	i := 1
	if i < len(v) && (v[i] == '#' || v[i] == 's') {
		base++
		i++
	} else if i < len(v) && v[i] == 'b' {
		base--
		i++
	}
	if i >= len(v) {
		return 0, false
	}
	octave, ok := parseOpInt(v[i:], -100)
	if !ok {
		return 0, false
	}
	return (octave+1)*12 + base, true
}

func toLowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}

// --- Dispatcher-facing operations (§4.5) ---

// IsSwitchedOn is the conjunction of every latched predicate plus the CC state.
func (r *Region) IsSwitchedOn() bool {
	return r.keySwitched && r.previousKeySwitched && r.sequenceSwitched &&
		r.pitchSwitched && r.bpmSwitched && r.aftertouchSwitched && r.allCCSwitched
}

// RegisterNoteOn updates latched state for a note-on and reports whether the
// region should fire, honoring its trigger kind.
func (r *Region) RegisterNoteOn(note, velocity int, randValue float64) bool {
	inRange := r.KeyRange.contains(note)
	wasEmpty := r.activeNotesInRange == 0

	if inRange {
		r.activeNotesInRange++
	}

	if !r.VelRange.contains(velocity) {
		return false
	}
	if r.HasRandRange && !r.RandRange.contains(randValue) {
		return false
	}
	if !inRange {
		return false
	}
	if !r.allCCConditionsMet() {
		return false
	}

	r.sequenceSwitched = r.sequenceCounter%r.SeqLength == r.SeqPosition-1
	r.sequenceCounter++

	if !r.IsSwitchedOn() {
		return false
	}

	switch r.Trigger {
	case TriggerAttack:
		return true
	case TriggerFirst:
		return wasEmpty
	case TriggerLegato:
		return !wasEmpty
	default: // release, release_key never fire on note-on
		return false
	}
}

// RegisterNoteOff updates latched state for a note-off and reports whether a
// release-triggered region should fire.
func (r *Region) RegisterNoteOff(note, velocity int, randValue float64, attackVoicePlaying bool) bool {
	if r.KeyRange.contains(note) && r.activeNotesInRange > 0 {
		r.activeNotesInRange--
	}
	r.previousNoteSeen = note

	if r.Trigger != TriggerRelease && r.Trigger != TriggerReleaseKey {
		return false
	}
	if !r.KeyRange.contains(note) || !r.VelRange.contains(velocity) {
		return false
	}
	if r.HasRandRange && !r.RandRange.contains(randValue) {
		return false
	}
	if !r.allCCConditionsMet() {
		return false
	}
	if !attackVoicePlaying && !r.RtDead {
		return false
	}
	return true
}

func (r *Region) allCCConditionsMet() bool {
	return r.allCCSwitched
}

const sustainCC = 64

// RegisterCC updates CC-conditional latch state and latches whether the
// sustain pedal (CC 64) is down. It always returns false: no on_ccN trigger
// ranges are parsed, so a CC never triggers a region. Pending delayed
// releases are drained by the caller, not here.
func (r *Region) RegisterCC(cc int, value int) bool {
	normVal := value
	if rng, ok := r.CCConditions[cc]; ok {
		r.ccSwitched[cc] = rng.contains(normVal)
	}
	r.recomputeAllCCSwitched()

	if cc == sustainCC {
		down := value >= 64
		if r.sustainHeld && !down {
			r.sustainHeld = down
			return false // releases pending deferred note-offs, handled by caller draining delayedReleasesQ
		}
		r.sustainHeld = down
	}
	return false
}

func (r *Region) recomputeAllCCSwitched() {
	all := true
	for cc := range r.CCConditions {
		if !r.ccSwitched[cc] {
			all = false
			break
		}
	}
	r.allCCSwitched = all
}

// PrimeCCState evaluates every locc/hicc condition against the engine's
// current CC values so a region isn't spuriously "not switched on" before
// the first real CC message for its controller arrives. Must be called once
// after a region is fully loaded, before it can match any note-on.
func (r *Region) PrimeCCState(ccValues [numCCs]float64) {
	for cc, rng := range r.CCConditions {
		r.ccSwitched[cc] = rng.contains(int(ccValues[cc] * 127))
	}
	r.recomputeAllCCSwitched()
}

func (r *Region) RegisterPitchWheel(bend int) {
	r.pitchSwitched = r.BendRange.contains(bend)
}

func (r *Region) RegisterAftertouch(value int) {
	r.aftertouchSwitched = r.AftertouchRange.contains(value)
}

func (r *Region) RegisterTempo(bpm float64) {
	if !r.HasBPMRange {
		r.bpmSwitched = true
		return
	}
	r.bpmSwitched = r.BPMRange.contains(bpm)
}

// QueueDelayedRelease records a note-off that must wait for the sustain
// pedal to lift.
func (r *Region) QueueDelayedRelease(note, velocity int) {
	r.delayedReleasesQ = append(r.delayedReleasesQ, delayedRelease{note, velocity})
}

// DrainDelayedReleases returns and clears all queued releases.
func (r *Region) DrainDelayedReleases() []delayedRelease {
	out := r.delayedReleasesQ
	r.delayedReleasesQ = nil
	return out
}

func (r *Region) SustainHeld() bool { return r.sustainHeld }

// --- Gain / pitch computations (§4.5) ---

func crossfadeGain(curve CrossfadeCurve, position float64) float64 {
	position = clampFloat(position, 0, 1)
	switch curve {
	case CurveGain:
		return position
	default:
		return sqrtApprox(position)
	}
}

func crossfadeGainOut(curve CrossfadeCurve, position float64) float64 {
	position = clampFloat(position, 0, 1)
	switch curve {
	case CurveGain:
		return 1 - position
	default:
		return sqrtApprox(1 - position)
	}
}

func sqrtApprox(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// rangePosition maps v's location within [lo,hi] of an in/out crossfade pair
// to a 0..1 progress value used by the crossfade curve.
func rangePosition(v float64, lo, hi int) float64 {
	if hi <= lo {
		return 1
	}
	p := (v - float64(lo)) / float64(hi-lo)
	return clampFloat(p, 0, 1)
}

// keyCrossfadeGain returns the in*out crossfade gain contribution for note.
func (r *Region) keyCrossfadeGain(note int) float64 {
	gIn := 1.0
	if note < r.XFInKey.Hi {
		gIn = crossfadeGain(r.XFCurve, rangePosition(float64(note), r.XFInKey.Lo, r.XFInKey.Hi))
	}
	gOut := 1.0
	if note > r.XFOutKey.Lo {
		gOut = crossfadeGainOut(r.XFCurve, rangePosition(float64(note), r.XFOutKey.Lo, r.XFOutKey.Hi))
	}
	return gIn * gOut
}

func (r *Region) velCrossfadeGain(vel int) float64 {
	gIn := 1.0
	if vel < r.XFInVel.Hi {
		gIn = crossfadeGain(r.XFCurve, rangePosition(float64(vel), r.XFInVel.Lo, r.XFInVel.Hi))
	}
	gOut := 1.0
	if vel > r.XFOutVel.Lo {
		gOut = crossfadeGainOut(r.XFCurve, rangePosition(float64(vel), r.XFOutVel.Lo, r.XFOutVel.Hi))
	}
	return gIn * gOut
}

func (r *Region) velocityCurveGain(vel int) float64 {
	if len(r.VelocityCurve) == 0 {
		norm := float64(vel) / 127.0
		return norm * norm
	}
	// piecewise-linear interpolation between declared points
	pts := r.VelocityCurve
	if vel <= pts[0].velocity {
		return pts[0].gain
	}
	for i := 1; i < len(pts); i++ {
		if vel <= pts[i].velocity {
			span := float64(pts[i].velocity - pts[i-1].velocity)
			if span == 0 {
				return pts[i].gain
			}
			t := float64(vel-pts[i-1].velocity) / span
			return pts[i-1].gain + t*(pts[i].gain-pts[i-1].gain)
		}
	}
	return pts[len(pts)-1].gain
}

// GetNoteGain is the product of key-track gain, key crossfade, velocity
// curve, and velocity crossfade.
func (r *Region) GetNoteGain(note, velocity int) float64 {
	keytrackDB := r.AmpKeytrack * float64(note-r.AmpKeycenter)
	gain := db2mag(keytrackDB)
	gain *= r.keyCrossfadeGain(note)
	gain *= r.velocityCurveGain(velocity)
	gain *= r.velCrossfadeGain(velocity)
	return gain
}

// GetCCGain is the product over all xfin_ccN/xfout_ccN ranges.
func (r *Region) GetCCGain(ccValues [numCCs]float64) float64 {
	gain := 1.0
	for cc, rng := range r.XFInCC {
		v := ccValues[cc] * 127
		if v < float64(rng.Hi) {
			gain *= crossfadeGain(r.XFCurve, rangePosition(v, rng.Lo, rng.Hi))
		}
	}
	for cc, rng := range r.XFOutCC {
		v := ccValues[cc] * 127
		if v > float64(rng.Lo) {
			gain *= crossfadeGainOut(r.XFCurve, rangePosition(v, rng.Lo, rng.Hi))
		}
	}
	return gain
}

// GetBaseGain converts VolumeDB + AmplitudeLinear to a linear scalar.
func (r *Region) GetBaseGain() float64 {
	return db2mag(r.VolumeDB) * r.AmplitudeLinear
}

// GetBasePitchVariation computes the pitch ratio contributed by keytrack,
// veltrack, random draw, transpose and tune, per §4.5.
func (r *Region) GetBasePitchVariation(note, velocity int, rng *rand.Rand) float64 {
	cents := r.PitchKeytrack*float64(note-r.PitchKeycenter) +
		r.PitchVeltrack*(float64(velocity)-1) +
		r.PitchRandom*(rng.Float64()*2-1) +
		float64(r.Transpose)*100 +
		r.Tune
	return centsToRatio(cents)
}

// GetOffset returns the starting sample offset including a random draw.
func (r *Region) GetOffset(rng *rand.Rand) int64 {
	off := r.Offset
	if r.OffsetRandom > 0 {
		off += int64(rng.Int63n(r.OffsetRandom + 1))
	}
	return off
}

// GetAmpRandomGain draws the per-event random amplitude contribution.
func (r *Region) GetAmpRandomGain(rng *rand.Rand) float64 {
	if r.AmpRandomDB <= 0 {
		return 1
	}
	db := rng.Float64() * r.AmpRandomDB
	return db2mag(-db)
}
