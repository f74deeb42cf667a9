package audio

import (
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// samplesStreamer plays a mono sample slice on both channels.
type samplesStreamer struct {
	samples []float64
	pos     int
}

func (s *samplesStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := copy2(out, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *samplesStreamer) Err() error { return nil }

func copy2(out [][2]float64, in []float64) int {
	n := min(len(out), len(in))
	for i := 0; i < n; i++ {
		out[i][0] = in[i]
		out[i][1] = in[i]
	}
	return n
}

// EncodeWAV writes buf as a mono 16-bit PCM WAV file.
func EncodeWAV(w io.WriteSeeker, buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(buf.SampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(w, &samplesStreamer{samples: buf.Samples}, format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}
