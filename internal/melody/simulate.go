package melody

import "math"

// cMajor is one ascending octave from middle C.
var cMajor = [...]int{60, 62, 64, 65, 67, 69, 71, 72}

const simulatedVelocity = 80

// Simulate builds a placeholder melody for a recording of the given length:
// two notes per second (at least four) walking up the C major scale, every
// third note held for a full second.
func Simulate(duration float64) []Note {
	count := max(4, int(math.Floor(duration*2)))

	notes := make([]Note, count)
	var start float64
	for i := range notes {
		length := 0.5
		if i%3 == 0 {
			length = 1.0
		}
		notes[i] = Note{
			Pitch:     cMajor[i%len(cMajor)],
			StartTime: start,
			Duration:  length,
			Velocity:  simulatedVelocity,
		}
		start += length
	}
	return notes
}
