package melody

// Merge thresholds.
const (
	TimeThreshold = 0.1 // seconds of silence that always ends a note
	PitchJump     = 3   // semitones that end a note even without a gap
)

// Merge folds time-ordered frame notes into note events. A frame extends
// the current note when it starts less than TimeThreshold after the
// previous frame started and lies within PitchJump semitones of the note's
// first frame; the note keeps that first pitch and the loudest velocity
// seen. The gap is taken between consecutive frame onsets, not from the
// note's start, so a sustained tone stays one note. The input is not
// modified.
func Merge(frames []Note) []Note {
	if len(frames) == 0 {
		return nil
	}

	merged := make([]Note, 0, len(frames))
	current := frames[0]
	for i, next := range frames[1:] {
		if continues(current, frames[i], next) {
			current = extend(current, next)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

func continues(current, prev, next Note) bool {
	gap := next.StartTime - prev.StartTime
	return gap < TimeThreshold && abs(next.Pitch-current.Pitch) < PitchJump
}

func extend(current, next Note) Note {
	return Note{
		Pitch:     current.Pitch,
		StartTime: current.StartTime,
		Duration:  next.End() - current.StartTime,
		Velocity:  max(current.Velocity, next.Velocity),
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
