package sfzcore

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/GeoffreyPlitt/debuggo"
)

var synthDebug = debuggo.Debug("sfzcore:synth")

// Config holds the engine's construction-time and reconfigurable parameters,
// set via constructor defaults and control-thread setters, mirroring the way
// the teacher's NewSfzPlayer/NewFreeverb take explicit parameters rather than
// reaching for a generic options/config library.
type Config struct {
	SampleRate         float64
	BlockSize          int
	NumVoices          int
	PreloadSize        int
	NumLoaderThreads   int
	OversamplingFactor int
	MaxEngineVoices    int
	StealingPolicy     StealingPolicy
}

// DefaultConfig returns sensible defaults for a desktop-class real-time host.
func DefaultConfig() Config {
	return Config{
		SampleRate:         44100,
		BlockSize:          512,
		NumVoices:          64,
		PreloadSize:        8192,
		NumLoaderThreads:   2,
		OversamplingFactor: 1,
		MaxEngineVoices:    256,
		StealingPolicy:     StealEnvelopeAndAge,
	}
}

const resetControllersCC = 121
const allSoundOffCC = 120
const allNotesOffCC = 123

// Synth is the engine's top-level façade: SFZ-load-time header listener,
// event dispatcher, and per-block renderer, all guarded by a single
// non-blocking control mutex per §4.9/§5.
type Synth struct {
	config Config

	mu sync.Mutex // control mutex; audio thread only ever TryLocks it

	midi     *MidiState
	mod      *ModMatrix
	filePool *FilePool
	voices   *VoiceList
	tuning   *Tuning

	regions          []*Region
	noteActivation   [128][]*Region
	ccActivation     [numCCs][]*Region
	upKeyswitch      []*Region
	downKeyswitch    []*Region
	lastKeyswitch    []*Region

	handles map[string]*FileHandle

	curves       map[string][]float64
	defaultPath  string
	labelCC      map[int]string
	noteOffset   int
	octaveOffset int
	ccInitial    [numCCs]float64

	effectBuses []*EffectBus

	volumeDB float64
	sfzPath  string
	sfzDir   string

	ampTargetIDs   map[int]int
	pitchTargetIDs map[int]int
	ccSourceIDs    map[int]int // shared controller-source ids, keyed by cc

	// parse-time opcode stack
	globalOpcodes []RawOpcode
	masterOpcodes []RawOpcode
	groupOpcodes  []RawOpcode

	scratchL, scratchR []float64
	mixL, mixR         []float64

	randSeed int64
}

// NewSynth constructs an idle engine ready to load an SFZ file.
func NewSynth(config Config) *Synth {
	mod := NewModMatrix()
	s := &Synth{
		config:         config,
		midi:           NewMidiState(),
		mod:            mod,
		filePool:       NewFilePool(NewDefaultDecoder(), config.PreloadSize, config.NumLoaderThreads),
		voices:         NewVoiceList(config.NumVoices, mod, config.SampleRate, config.StealingPolicy, config.MaxEngineVoices),
		tuning:         NewTuning(),
		handles:        map[string]*FileHandle{},
		curves:         map[string][]float64{},
		labelCC:        map[int]string{},
		ampTargetIDs:   map[int]int{},
		pitchTargetIDs: map[int]int{},
		ccSourceIDs:    map[int]int{},
	}
	s.effectBuses = []*EffectBus{NewEffectBus(0, "", config.SampleRate, config.BlockSize)}
	s.Resize(config.BlockSize)
	return s
}

// Resize reallocates the engine's per-block scratch buffers; must be called
// under the control mutex before renderBlock sees the new size.
func (s *Synth) Resize(numFrames int) {
	s.scratchL = make([]float64, numFrames)
	s.scratchR = make([]float64, numFrames)
	s.mixL = make([]float64, numFrames)
	s.mixR = make([]float64, numFrames)
	for _, b := range s.effectBuses {
		b.Resize(numFrames)
	}
	s.config.BlockSize = numFrames
}

// SetSampleRate and SetSamplesPerBlock are the §6 audio-interface setters;
// both must be called (directly or via NewSynth) before RenderBlock runs.
func (s *Synth) SetSampleRate(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.SampleRate = hz
}

func (s *Synth) SetSamplesPerBlock(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resize(n)
}

func (s *Synth) SetVolume(db float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumeDB = db
}

// LoadSfzFile parses path and (re)builds the engine's region set, draining
// the previous FilePool before swapping state in, per §4.9's "acquire,
// drain background loading, mutate, release" rule.
func (s *Synth) LoadSfzFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filePool.Close()
	s.resetLoadState()
	s.sfzPath = path
	s.sfzDir = filepath.Dir(path)
	s.filePool = NewFilePool(NewDefaultDecoder(), s.config.PreloadSize, s.config.NumLoaderThreads)

	if err := ParseSfzFile(path, s); err != nil {
		return fmt.Errorf("sfzcore: failed to load %s: %w", path, err)
	}
	synthDebug("loaded %s: %d regions", path, len(s.regions))
	return nil
}

func (s *Synth) resetLoadState() {
	s.regions = nil
	for i := range s.noteActivation {
		s.noteActivation[i] = nil
	}
	for i := range s.ccActivation {
		s.ccActivation[i] = nil
	}
	s.upKeyswitch = nil
	s.downKeyswitch = nil
	s.lastKeyswitch = nil
	s.handles = map[string]*FileHandle{}
	s.curves = map[string][]float64{}
	s.labelCC = map[int]string{}
	s.ampTargetIDs = map[int]int{}
	s.pitchTargetIDs = map[int]int{}
	s.ccSourceIDs = map[int]int{}
	s.globalOpcodes, s.masterOpcodes, s.groupOpcodes = nil, nil, nil
	s.mod = NewModMatrix()
	s.voices = NewVoiceList(s.config.NumVoices, s.mod, s.config.SampleRate, s.config.StealingPolicy, s.config.MaxEngineVoices)
}

// OnHeader implements HeaderListener, maintaining the global/master/group
// opcode stack described in §4.9 and finalizing each region as it appears.
func (s *Synth) OnHeader(name string, opcodes []RawOpcode) {
	switch name {
	case "global":
		s.globalOpcodes = opcodes
		s.masterOpcodes = nil
		s.groupOpcodes = nil
	case "master":
		s.masterOpcodes = opcodes
		s.groupOpcodes = nil
	case "group":
		s.groupOpcodes = opcodes
	case "region":
		s.addRegion(opcodes)
	case "control":
		s.applyControlHeader(opcodes)
	case "curve":
		s.addCurve(opcodes)
	case "effect":
		s.addEffect(opcodes)
	default:
		synthDebug("unrecognized header <%s>, ignored", name)
	}
}

func (s *Synth) addRegion(opcodes []RawOpcode) {
	r := NewRegion(len(s.regions))
	for _, list := range [][]RawOpcode{s.globalOpcodes, s.masterOpcodes, s.groupOpcodes, opcodes} {
		for _, op := range list {
			r.ParseOpcode(op)
		}
	}
	s.finalizeRegion(r)
}

func (s *Synth) finalizeRegion(r *Region) {
	r.PrimeCCState(s.ccInitial)

	if r.SamplePath != "" && !r.IsGenerator {
		path := r.SamplePath
		if !filepath.IsAbs(path) {
			base := s.defaultPath
			if base == "" {
				base = s.sfzDir
			}
			path = filepath.Join(base, path)
		}
		if h, ok := s.handles[path]; ok {
			_ = h
		} else if h, err := s.filePool.Preload(path); err == nil {
			s.handles[path] = h
		} else {
			synthDebug("region %d: failed to load sample %s: %v — region disabled", r.ID, path, err)
			return
		}
	}

	s.regions = append(s.regions, r)
	s.registerActivation(r)
	s.wireModulation(r)
}

func (s *Synth) registerActivation(r *Region) {
	lo, hi := r.KeyRange.Lo, r.KeyRange.Hi
	if lo < 0 {
		lo = 0
	}
	if hi > 127 {
		hi = 127
	}
	for k := lo; k <= hi; k++ {
		s.noteActivation[k] = append(s.noteActivation[k], r)
	}
	for cc := range r.CCConditions {
		s.ccActivation[cc] = append(s.ccActivation[cc], r)
	}
	if r.SwDown >= 0 {
		s.downKeyswitch = append(s.downKeyswitch, r)
	}
	if r.SwUp >= 0 {
		s.upKeyswitch = append(s.upKeyswitch, r)
	}
	if r.SwLast >= 0 {
		s.lastKeyswitch = append(s.lastKeyswitch, r)
	}
}

// wireModulation registers this region's amp/pitch ModMatrix targets and
// connects any LFO/CC modulation opcodes it declared (§4.6).
func (s *Synth) wireModulation(r *Region) {
	ampTarget := s.mod.RegisterTarget(fmt.Sprintf("region%d:amp", r.ID), CombineAdd)
	pitchTarget := s.mod.RegisterTarget(fmt.Sprintf("region%d:pitch", r.ID), CombineAdd)
	s.ampTargetIDs[r.ID] = ampTarget
	s.pitchTargetIDs[r.ID] = pitchTarget

	if r.AmpLFODepth != 0 || r.AmpLFOFreq > 0 {
		src := s.mod.RegisterSource(fmt.Sprintf("region%d:amplfo", r.ID), r.ID,
			&LFOSource{Frequency: r.AmpLFOFreq, SampleRate: s.config.SampleRate, Waveform: LFOSine})
		s.mod.Connect(src, ampTarget, r.AmpLFODepth, 0)
	}
	if r.PitchLFODepth != 0 || r.PitchLFOFreq > 0 {
		src := s.mod.RegisterSource(fmt.Sprintf("region%d:pitchlfo", r.ID), r.ID,
			&LFOSource{Frequency: r.PitchLFOFreq, SampleRate: s.config.SampleRate, Waveform: LFOSine})
		s.mod.Connect(src, pitchTarget, r.PitchLFODepth, 0)
	}
	for cc, depth := range r.AmpOnCC {
		s.mod.Connect(s.sharedCCSource(cc), ampTarget, depth, 0)
	}
	for cc, depth := range r.PitchOnCC {
		s.mod.Connect(s.sharedCCSource(cc), pitchTarget, depth, 0)
	}
}

// sharedCCSource returns (registering if needed) the per-cycle
// ControllerSource every region's cc-keyed connections for the same
// controller number share.
func (s *Synth) sharedCCSource(cc int) int {
	if id, ok := s.ccSourceIDs[cc]; ok {
		return id
	}
	id := s.mod.RegisterSource(fmt.Sprintf("cc%d", cc), -1,
		&ControllerSource{MidiState: s.midi, CC: cc, SampleRate: s.config.SampleRate})
	s.ccSourceIDs[cc] = id
	return id
}

func (s *Synth) applyControlHeader(opcodes []RawOpcode) {
	for _, op := range opcodes {
		switch {
		case op.Name == "default_path":
			s.defaultPath = filepath.Join(s.sfzDir, op.Value)
		case op.Name == "note_offset":
			s.noteOffset, _ = parseOpInt(op.Value, s.noteOffset)
		case op.Name == "octave_offset":
			s.octaveOffset, _ = parseOpInt(op.Value, s.octaveOffset)
		case op.Name == "set_cc" && op.HasParameter:
			v, _ := parseOpInt(op.Value, 0)
			s.ccInitial[op.Parameter] = float64(v) / 127.0
			s.midi.CC7Bit(op.Parameter, uint8(v))
		case op.Name == "label_cc" && op.HasParameter:
			s.labelCC[op.Parameter] = op.Value
		default:
			synthDebug("control header: unhandled opcode %s", op.Name)
		}
	}
}

// addCurve builds a 129-point lookup table from v000..v127 opcodes.
func (s *Synth) addCurve(opcodes []RawOpcode) {
	points := make([]float64, 129)
	for i := range points {
		points[i] = float64(i) / 128.0 // identity default
	}
	label := ""
	for _, op := range opcodes {
		if op.Name == "v" && op.HasParameter && op.Parameter >= 0 && op.Parameter < 129 {
			v, _ := parseOpFloat(op.Value, points[op.Parameter])
			points[op.Parameter] = v
		}
		if op.Name == "curve_index" {
			label = "curve" + op.Value
		}
	}
	if label == "" {
		label = fmt.Sprintf("curve%d", len(s.curves))
	}
	s.curves[label] = points
}

func (s *Synth) addEffect(opcodes []RawOpcode) {
	bus := len(s.effectBuses)
	kind := ""
	toMain, toMix := 1.0, 0.0
	for _, op := range opcodes {
		switch op.Name {
		case "type":
			kind = op.Value
		case "bus":
			if b, ok := parseOpInt(op.Value, bus); ok {
				bus = b
			}
		case "fxtomain":
			toMain, _ = parseOpFloat(op.Value, toMain*100)
			toMain /= 100
		case "fxtomix":
			toMix, _ = parseOpFloat(op.Value, toMix*100)
			toMix /= 100
		}
	}
	for len(s.effectBuses) <= bus {
		s.effectBuses = append(s.effectBuses, NewEffectBus(len(s.effectBuses), "", s.config.SampleRate, s.config.BlockSize))
	}
	s.effectBuses[bus] = NewEffectBus(bus, kind, s.config.SampleRate, s.config.BlockSize)
	s.effectBuses[bus].ToMain = toMain
	s.effectBuses[bus].ToMix = toMix
}

// --- MIDI event handling (§4.9) ---

func (s *Synth) mapNote(note int) int { return note + s.noteOffset + s.octaveOffset*12 }

// NoteOn dispatches a note-on to every candidate region named by the
// activation lists, starting a voice for each acceptor.
func (s *Synth) NoteOn(delay, note, velocity, channel int) {
	if !s.mu.TryLock() {
		synthDebug("control mutex busy, dropping noteOn(%d,%d)", note, velocity)
		return
	}
	defer s.mu.Unlock()

	note = s.mapNote(note)
	if note < 0 || note > 127 {
		return
	}
	s.midi.NoteOn(channel, note, uint8(velocity))
	randVal := s.nextRandom()

	for _, r := range s.downKeyswitch {
		if note == r.SwDown {
			r.keySwitched = true
		}
	}
	for _, r := range s.upKeyswitch {
		if note == r.SwUp {
			r.keySwitched = false
		}
	}
	for _, r := range s.lastKeyswitch {
		if note >= r.SwLoKey && note <= r.SwHiKey {
			r.previousKeySwitched = note == r.SwLast
		}
	}

	for _, r := range s.noteActivation[note] {
		if r.RegisterNoteOn(note, velocity, randVal) {
			s.startVoice(r, note, velocity, channel)
		}
	}
}

// NoteOff dispatches a note-off. A zero velocity substitutes the remembered
// note-on velocity, per running-status keyboards (§4.9).
func (s *Synth) NoteOff(delay, note, velocity, channel int) {
	if !s.mu.TryLock() {
		synthDebug("control mutex busy, dropping noteOff(%d)", note)
		return
	}
	defer s.mu.Unlock()

	note = s.mapNote(note)
	if note < 0 || note > 127 {
		return
	}
	if velocity == 0 {
		velocity = int(s.midi.NoteOnVelocity(channel, note))
	}
	s.midi.NoteOff(channel, note)
	randVal := s.nextRandom()

	attackPlaying := s.anyAttackVoicePlaying(note)
	for _, v := range s.voices.Active() {
		if v.note == note && v.channel == channel && v.region.Trigger == TriggerAttack && v.region.LoopMode != LoopOneShot {
			v.RegisterNoteOff(delay)
		}
	}
	for _, r := range s.noteActivation[note] {
		if !r.SustainHeld() {
			if r.RegisterNoteOff(note, velocity, randVal, attackPlaying) {
				s.startVoice(r, note, velocity, channel)
			}
		} else {
			r.QueueDelayedRelease(note, velocity)
		}
	}
}

func (s *Synth) anyAttackVoicePlaying(note int) bool {
	for _, v := range s.voices.Active() {
		if v.note == note && v.region.Trigger == TriggerAttack {
			return true
		}
	}
	return false
}

func (s *Synth) startVoice(r *Region, note, velocity, channel int) {
	var handle *FileHandle
	if !r.IsGenerator {
		path := r.SamplePath
		if !filepath.IsAbs(path) {
			base := s.defaultPath
			if base == "" {
				base = s.sfzDir
			}
			path = filepath.Join(base, path)
		}
		h, ok := s.handles[path]
		if !ok {
			synthDebug("region %d: no loaded handle for %s, skipping voice", r.ID, path)
			return
		}
		handle = h
	}
	ampID := s.ampTargetIDs[r.ID]
	pitchID := s.pitchTargetIDs[r.ID]
	v := s.voices.NoteOn(r, handle, s.midi, s.filePool, note, velocity, channel, s.nextSeed(), ampID, pitchID)
	if v == nil {
		synthDebug("voice pool exhausted, dropped note %d", note)
	}
}

// CC handles a 7-bit control-change.
func (s *Synth) CC(delay, ccNumber, value int) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	s.midi.CC7Bit(ccNumber, uint8(value))
	s.dispatchCC(ccNumber, value)
}

// HDCC handles a high-definition (normalized) control-change.
func (s *Synth) HDCC(delay, ccNumber int, normValue float64) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	s.midi.CCHD(ccNumber, normValue)
	s.dispatchCC(ccNumber, int(normValue*127))
}

func (s *Synth) dispatchCC(ccNumber, value int) {
	for _, r := range s.ccActivation[ccNumber] {
		r.RegisterCC(ccNumber, value)
	}
	if ccNumber == sustainCC && value < 64 {
		for _, r := range s.regions {
			for _, dr := range r.DrainDelayedReleases() {
				s.startVoice(r, dr.note, dr.velocity, 0)
			}
		}
	}
	switch ccNumber {
	case resetControllersCC:
		s.midi.ResetAllControllers()
	case allNotesOffCC, allSoundOffCC:
		s.voices.AllSoundOff()
		s.midi.AllNotesOff()
	}
}

func (s *Synth) PitchWheel(delay, pitch int) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	s.midi.PitchWheel(pitch)
	for _, r := range s.regions {
		r.RegisterPitchWheel(pitch)
	}
}

func (s *Synth) Aftertouch(delay, value int) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	s.midi.Aftertouch(value)
	for _, r := range s.regions {
		r.RegisterAftertouch(value)
	}
}

func (s *Synth) Tempo(delay int, secondsPerQuarter float64) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	s.midi.Tempo(secondsPerQuarter)
	for _, r := range s.regions {
		r.RegisterTempo(s.midi.BPM())
	}
}

// nextRandom/nextSeed are the per-event random draws that feed lorand/hirand
// predicates and per-voice random parameter variation. A simple counter-based
// LCG keeps the audio/control thread allocation-free; it need not be
// cryptographically strong.
func (s *Synth) nextRandom() float64 {
	s.randSeed = s.randSeed*6364136223846793005 + 1442695040888963407
	return float64(uint64(s.randSeed)>>11) / float64(1<<53)
}

func (s *Synth) nextSeed() int64 {
	s.randSeed = s.randSeed*6364136223846793005 + 1442695040888963407
	return s.randSeed
}

// RenderBlock renders numFrames frames into outL/outR, implementing §4.9's
// five-step render loop. If the control mutex is held, the block falls back
// to silence instead of blocking (§5).
func (s *Synth) RenderBlock(outL, outR []float64) {
	if !s.mu.TryLock() {
		fill(0, outL)
		fill(0, outR)
		return
	}
	defer s.mu.Unlock()

	n := len(outL)
	if len(s.scratchL) < n {
		s.Resize(n)
	}
	fill(0, outL)
	fill(0, outR)
	fill(0, s.mixL)
	fill(0, s.mixR)
	for _, b := range s.effectBuses {
		b.Clear()
	}

	s.mod.BeginCycle(n)

	for _, v := range s.voices.Active() {
		v.RenderBlock(s.scratchL[:n], s.scratchR[:n], InterpLinear)
		for i, bus := range s.effectBuses {
			gain := 0.0
			if i < len(v.region.GainToEffectBus) {
				gain = v.region.GainToEffectBus[i]
			} else if i == 0 {
				gain = 1
			}
			if gain != 0 {
				bus.Accumulate(s.scratchL[:n], s.scratchR[:n], gain)
			}
		}
	}
	s.voices.Sweep()

	for _, bus := range s.effectBuses {
		bus.Process()
		bus.MixOutputsTo(outL, outR, s.mixL, s.mixR)
	}
	add(s.mixL, outL)
	add(s.mixR, outR)

	masterGain := db2mag(s.volumeDB)
	applyGain1(masterGain, outL, outL)
	applyGain1(masterGain, outR, outR)

	s.mod.EndCycle()
	s.midi.AdvanceTime(n)
	s.filePool.MaybeRunGC(time.Now())
}

// SetActive drains all loader threads when deactivating, making host
// deactivate() calls synchronous per §5.
func (s *Synth) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !active {
		s.filePool.Close()
	}
}

func (s *Synth) Tuning() *Tuning { return s.tuning }

// --- §6 configuration & persistence surface ---

func (s *Synth) SetNumVoices(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.NumVoices = n
	s.voices = NewVoiceList(n, s.mod, s.config.SampleRate, s.config.StealingPolicy, s.config.MaxEngineVoices)
}

func (s *Synth) SetPreloadSize(frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.PreloadSize = frames
}

func (s *Synth) SetOversamplingFactor(factor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if factor < 1 {
		factor = 1
	}
	s.config.OversamplingFactor = factor
}

// LoadScalaFile/SetScalaRootKey/SetTuningFrequency/LoadStretchTuningByRatio
// delegate straight to the engine's Tuning, guarded by the control mutex so a
// reload can't race a concurrent RenderBlock.
func (s *Synth) LoadScalaFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tuning.LoadScalaFile(path)
}

func (s *Synth) SetScalaRootKey(key int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning.SetScalaRootKey(key)
}

func (s *Synth) SetTuningFrequency(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning.SetTuningFrequency(hz)
}

func (s *Synth) LoadStretchTuningByRatio(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning.LoadStretchTuningByRatio(ratio)
}

// SaveState snapshots the engine's host-facing parameters for persistence.
func (s *Synth) SaveState() PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PersistedState{
		SfzFilePath:      s.sfzPath,
		Volume:           float32(s.volumeDB),
		NumVoices:        int32(s.config.NumVoices),
		OversamplingLog2: int32(log2Int(s.config.OversamplingFactor)),
		PreloadSize:      int32(s.config.PreloadSize),
		ScalaFilePath:    s.tuning.ScalaFilePath(),
		ScalaRootKey:     int32(s.tuning.ScalaRootKey()),
		TuningFrequency:  float32(s.tuning.TuningFrequency()),
		StretchedTuning:  float32(s.tuning.StretchRatio()),
	}
}

// RestoreState reapplies a previously saved snapshot, reloading the SFZ file
// and Scala scale it names.
func (s *Synth) RestoreState(state PersistedState) error {
	s.SetNumVoices(int(state.NumVoices))
	s.SetPreloadSize(int(state.PreloadSize))
	s.SetOversamplingFactor(1 << uint(state.OversamplingLog2))
	s.SetVolume(float64(state.Volume))
	s.SetScalaRootKey(int(state.ScalaRootKey))
	s.SetTuningFrequency(float64(state.TuningFrequency))
	if state.StretchedTuning > 0 {
		s.LoadStretchTuningByRatio(float64(state.StretchedTuning))
	}
	if state.ScalaFilePath != "" {
		s.LoadScalaFile(state.ScalaFilePath)
	}
	if state.SfzFilePath != "" {
		return s.LoadSfzFile(state.SfzFilePath)
	}
	return nil
}

func log2Int(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}
