package sfzcore

import "github.com/GeoffreyPlitt/debuggo"

var modDebug = debuggo.Debug("sfzcore:modmatrix")

// TargetCombinator selects how multiple sources combine onto one target.
type TargetCombinator int

const (
	CombineAdd TargetCombinator = iota
	CombineMultiply
	CombinePercent // multiply by value/100
)

// ModSource generates one block of modulation values. Per-voice sources read
// voiceID/regionID from the matrix's current voice context; per-cycle
// sources ignore it and are shared across all voices.
type ModSource interface {
	PerVoice() bool
	// Render writes numFrames values into out for the given voice scope
	// (ignored for per-cycle sources).
	Render(m *ModMatrix, voiceID int, out []float64)
}

type modEdge struct {
	sourceID   int
	depth      float64
	velToDepth float64
}

type modTarget struct {
	key         string
	combinator  TargetCombinator
	edges       []modEdge
	buf         []float64
	scratch     []float64
	ready       bool
	readyVoice  int // voiceID this buffer was last computed for, when per-voice
}

type modSourceSlot struct {
	key        string
	source     ModSource
	regionID   int // region owning a per-voice source, -1 for per-cycle
	perVoiceBuf map[int][]float64
	cycleBuf   []float64
	ready      bool
	readyVoice int
}

// ModMatrix is the lazy, memoized bipartite modulation graph described in
// §4.6: sources feed targets through depth-scaled, combinator-merged edges,
// with cycle safety via a mark-ready-before-computing guard.
type ModMatrix struct {
	sources []*modSourceSlot
	targets []*modTarget
	byKey   map[string]int // target key -> index

	numFrames     int
	currentVoice  int
	currentRegion int
	velocity      float64
}

func NewModMatrix() *ModMatrix {
	return &ModMatrix{byKey: map[string]int{}}
}

// RegisterSource adds a source and returns its stable integer id.
func (m *ModMatrix) RegisterSource(key string, regionID int, src ModSource) int {
	m.sources = append(m.sources, &modSourceSlot{
		key: key, source: src, regionID: regionID,
		perVoiceBuf: map[int][]float64{},
	})
	return len(m.sources) - 1
}

// RegisterTarget adds a target and returns its stable integer id.
func (m *ModMatrix) RegisterTarget(key string, combinator TargetCombinator) int {
	if idx, ok := m.byKey[key]; ok {
		return idx
	}
	m.targets = append(m.targets, &modTarget{key: key, combinator: combinator})
	idx := len(m.targets) - 1
	m.byKey[key] = idx
	return idx
}

// Connect adds an edge from a registered source to a registered target.
func (m *ModMatrix) Connect(sourceID, targetID int, depth, velToDepth float64) {
	t := m.targets[targetID]
	t.edges = append(t.edges, modEdge{sourceID: sourceID, depth: depth, velToDepth: velToDepth})
}

// BeginCycle clears per-cycle readiness and sets the block's frame count.
func (m *ModMatrix) BeginCycle(numFrames int) {
	m.numFrames = numFrames
	for _, t := range m.targets {
		if len(t.buf) != numFrames {
			t.buf = make([]float64, numFrames)
			t.scratch = make([]float64, numFrames)
		}
		t.ready = false
	}
	for _, s := range m.sources {
		if s.regionID < 0 { // per-cycle
			if len(s.cycleBuf) != numFrames {
				s.cycleBuf = make([]float64, numFrames)
			}
			s.ready = false
		}
	}
}

// BeginVoice clears per-voice readiness and sets the current voice/region
// scope and triggering velocity (used by velToDepth).
func (m *ModMatrix) BeginVoice(voiceID, regionID int, velocity float64) {
	m.currentVoice = voiceID
	m.currentRegion = regionID
	m.velocity = velocity
	for _, t := range m.targets {
		t.ready = false
	}
	for _, s := range m.sources {
		if s.regionID >= 0 {
			s.ready = false
			s.readyVoice = voiceID
		}
	}
}

func (m *ModMatrix) neutralElement(c TargetCombinator) float64 {
	switch c {
	case CombineMultiply:
		return 1
	case CombinePercent:
		return 100
	default:
		return 0
	}
}

func (m *ModMatrix) combine(c TargetCombinator, acc, v float64) float64 {
	switch c {
	case CombineMultiply:
		return acc * v
	case CombinePercent:
		return acc * v / 100
	default:
		return acc + v
	}
}

// renderSource returns the numFrames-length buffer for a source in the
// current voice scope, computing it lazily if needed.
func (m *ModMatrix) renderSource(idx int) []float64 {
	s := m.sources[idx]
	if s.regionID < 0 {
		if !s.ready {
			s.source.Render(m, -1, s.cycleBuf)
			s.ready = true
		}
		return s.cycleBuf
	}
	buf, ok := s.perVoiceBuf[m.currentVoice]
	if !ok || len(buf) != m.numFrames {
		buf = make([]float64, m.numFrames)
		s.perVoiceBuf[m.currentVoice] = buf
	}
	if !s.ready || s.readyVoice != m.currentVoice {
		s.source.Render(m, m.currentVoice, buf)
		s.ready = true
		s.readyVoice = m.currentVoice
	}
	return buf
}

// GetModulation evaluates (if needed) and returns the target's buffer for
// the current cycle/voice scope, per §4.6's algorithm.
func (m *ModMatrix) GetModulation(targetID int) []float64 {
	t := m.targets[targetID]
	if t.ready && t.readyVoice == m.currentVoice {
		return t.buf
	}
	// Mark ready early: breaks cycles by making a re-entrant lookup see the
	// neutral element instead of recursing forever.
	t.ready = true
	t.readyVoice = m.currentVoice
	fill(m.neutralElement(t.combinator), t.buf)

	first := true
	for _, e := range t.edges {
		src := m.sources[e.sourceID]
		if src.regionID >= 0 && src.regionID != m.currentRegion {
			continue // per-voice source scoped to a different region
		}
		depth := e.depth + e.velToDepth*m.velocity
		srcBuf := m.renderSource(e.sourceID)
		if first {
			applyGain1(depth, srcBuf, t.buf)
			first = false
			continue
		}
		applyGain1(depth, srcBuf, t.scratch)
		for i := range t.buf {
			t.buf[i] = m.combine(t.combinator, t.buf[i], t.scratch[i])
		}
	}
	return t.buf
}

// EndCycle is a no-op hook kept for symmetry with BeginCycle; present so
// callers (Synth.renderBlock) can bracket a cycle explicitly per §4.9 step 5.
func (m *ModMatrix) EndCycle() {}
