package pitch

// ConfidenceThreshold is the minimum strength of a frame's strongest
// candidate for the frame to count as voiced.
const ConfidenceThreshold = 0.1

// Observation is the dominant pitch of one voiced frame.
type Observation struct {
	Time     float64
	PitchHz  float64
	Strength float64
}

// SelectDominant keeps the strongest candidate of each frame. Frames whose
// strongest candidate is below threshold, or that have no candidate with a
// positive pitch, are treated as unvoiced and dropped.
func SelectDominant(frames []Frame, threshold float64) []Observation {
	var out []Observation
	for _, f := range frames {
		best, ok := strongest(f.Candidates)
		if !ok || best.Strength < threshold || best.PitchHz <= 0 {
			continue
		}
		out = append(out, Observation{
			Time:     f.Time,
			PitchHz:  best.PitchHz,
			Strength: best.Strength,
		})
	}
	return out
}

// strongest returns the first candidate with maximal strength.
func strongest(cs []Candidate) (Candidate, bool) {
	if len(cs) == 0 {
		return Candidate{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Strength > best.Strength {
			best = c
		}
	}
	return best, true
}
