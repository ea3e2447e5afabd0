package sfzcore

// StealingPolicy selects which sounding voice yields when a new note must
// steal a slot (§4.8).
type StealingPolicy int

const (
	StealFirst StealingPolicy = iota // steal the oldest-allocated voice slot
	StealOldest                     // steal the voice with the earliest note-on
	StealEnvelopeAndAge              // steal argmin(ampEnvelopeValue * ageScalePenalty)
)

// ageScalePenalty implements the §9 Open Question resolution for
// EnvelopeAndAge: older voices are preferred for stealing even at equal
// envelope level, via a penalty that decays toward 0 as a voice ages.
func ageScalePenalty(ageSamples int64, sampleRate float64) float64 {
	ageSeconds := float64(ageSamples) / sampleRate
	return 1 / (1 + ageSeconds)
}

// polyphonyGroup tracks an active-voice count against an optional limit.
// VoiceList uses it for the per-region and engine-wide limits, and, with no
// limit, to track the voices of each group number for off_by choking.
type polyphonyGroup struct {
	limit  int // -1 = unlimited
	active []*Voice
}

func newPolyphonyGroup(limit int) *polyphonyGroup {
	return &polyphonyGroup{limit: limit}
}

func (g *polyphonyGroup) add(v *Voice) { g.active = append(g.active, v) }

func (g *polyphonyGroup) remove(v *Voice) {
	for i, x := range g.active {
		if x == v {
			g.active = append(g.active[:i], g.active[i+1:]...)
			return
		}
	}
}

func (g *polyphonyGroup) full() bool {
	return g.limit >= 0 && len(g.active) >= g.limit
}

// victim returns the voice this group would sacrifice to make room, under
// the given policy. Returns nil if the group has no active voices.
func (g *polyphonyGroup) victim(policy StealingPolicy, sampleRate float64) *Voice {
	if len(g.active) == 0 {
		return nil
	}
	switch policy {
	case StealFirst:
		return g.active[0]
	case StealOldest:
		best := g.active[0]
		for _, v := range g.active[1:] {
			if v.Age() > best.Age() {
				best = v
			}
		}
		return best
	default: // StealEnvelopeAndAge
		best := g.active[0]
		bestScore := best.AmpEnvelopeValue() * ageScalePenalty(best.Age(), sampleRate)
		for _, v := range g.active[1:] {
			score := v.AmpEnvelopeValue() * ageScalePenalty(v.Age(), sampleRate)
			if score < bestScore {
				best = v
				bestScore = score
			}
		}
		return best
	}
}
