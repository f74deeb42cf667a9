package audio

import (
	"fmt"
	"math"

	apperrors "github.com/dygy/hum-grep/internal/errors"
)

// CanonicalSampleRate is the rate every decoded buffer is resampled to.
const CanonicalSampleRate = 22050

// Buffer is a decoded mono recording.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Validate rejects buffers the pitch tracker cannot analyze.
func (b *Buffer) Validate() error {
	if b == nil || len(b.Samples) == 0 {
		return apperrors.ErrEmptyBuffer
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: got %d", apperrors.ErrInvalidSampleRate, b.SampleRate)
	}
	for i, s := range b.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w at sample %d", apperrors.ErrNonFiniteSample, i)
		}
	}
	return nil
}
