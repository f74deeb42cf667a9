package melody

import (
	"math"

	"github.com/dygy/hum-grep/internal/pitch"
)

// Hummable register accepted by the quantizer (C2..C7).
const (
	MinPitch = 36
	MaxPitch = 96
)

// HzToMIDI returns the nearest MIDI note number for a frequency (A4 = 440 Hz = 69).
func HzToMIDI(hz float64) int {
	return int(math.Round(12*math.Log2(hz/440.0) + 69))
}

// Velocity maps a 0..1 strength to a MIDI velocity.
func Velocity(strength float64) int {
	return clamp(int(math.Round(strength*100)), 0, 127)
}

// Quantize converts observations into single-frame candidate notes. Pitches
// outside [MinPitch, MaxPitch] are dropped; the second return value counts them.
func Quantize(obs []pitch.Observation, frameTime float64) ([]Note, int) {
	notes := make([]Note, 0, len(obs))
	rejected := 0
	for _, o := range obs {
		p := HzToMIDI(o.PitchHz)
		if p < MinPitch || p > MaxPitch {
			rejected++
			continue
		}
		notes = append(notes, Note{
			Pitch:     p,
			StartTime: o.Time,
			Duration:  frameTime,
			Velocity:  Velocity(o.Strength),
		})
	}
	return notes, rejected
}
