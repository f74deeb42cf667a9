// Package audiotest synthesizes deterministic buffers for tests.
package audiotest

import (
	"math"

	"github.com/dygy/hum-grep/internal/audio"
)

// Sine returns seconds of a sinusoid at freq Hz with the given amplitude.
func Sine(freq, amplitude, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Silence returns seconds of zero samples.
func Silence(seconds float64, sampleRate int) []float64 {
	return make([]float64, int(seconds*float64(sampleRate)))
}

// Buffer concatenates segments into a buffer at sampleRate.
func Buffer(sampleRate int, segments ...[]float64) *audio.Buffer {
	var samples []float64
	for _, s := range segments {
		samples = append(samples, s...)
	}
	return &audio.Buffer{Samples: samples, SampleRate: sampleRate}
}
