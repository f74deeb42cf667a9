package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	apperrors "github.com/dygy/hum-grep/internal/errors"
	"github.com/dygy/hum-grep/internal/exec"
	"github.com/dygy/hum-grep/internal/workspace"
)

// resampleQuality is passed to beep.Resample; 4 is beep's recommended default.
const resampleQuality = 4

// Decoder turns uploaded bytes into a mono Buffer at the canonical rate.
// Formats beep cannot read natively are transcoded through ffmpeg.
type Decoder struct {
	runner     *exec.Runner
	sampleRate int
}

// NewDecoder creates a decoder. A nil runner disables the ffmpeg fallback.
func NewDecoder(runner *exec.Runner) *Decoder {
	return &Decoder{
		runner:     runner,
		sampleRate: CanonicalSampleRate,
	}
}

// DecodeFile reads and decodes an audio file from disk
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*Buffer, error) {
	if _, err := ValidateInput(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return d.Decode(ctx, data, filepath.Base(path))
}

// Decode tries each strategy in turn and returns the first buffer produced.
func (d *Decoder) Decode(ctx context.Context, data []byte, name string) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", apperrors.ErrCorruptedFile)
	}

	var attempts []error

	format := DetectFormat(data[:min(len(data), 12)], name)
	buf, err := d.decodeNative(data, format)
	if err == nil {
		return buf, nil
	}
	attempts = append(attempts, fmt.Errorf("native %s: %w", format, err))

	if d.runner != nil {
		buf, err = d.decodeWithFFmpeg(ctx, data, name)
		if err == nil {
			return buf, nil
		}
		attempts = append(attempts, fmt.Errorf("ffmpeg: %w", err))
	}

	return nil, &apperrors.DecodeError{Attempts: attempts}
}

func (d *Decoder) decodeNative(data []byte, format Format) (*Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		bf       beep.Format
		err      error
	)

	switch format {
	case FormatWAV:
		streamer, bf, err = wav.Decode(bytes.NewReader(data))
	case FormatMP3:
		streamer, bf, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case FormatFLAC:
		streamer, bf, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s needs transcoding", apperrors.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	return readMono(streamer, bf, d.sampleRate)
}

func (d *Decoder) decodeWithFFmpeg(ctx context.Context, data []byte, name string) (*Buffer, error) {
	ws, err := workspace.Create()
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	inputPath, err := ws.WriteFile("upload"+filepath.Ext(name), data)
	if err != nil {
		return nil, err
	}

	if err := d.runner.Transcode(ctx, inputPath, ws.Converted(), d.sampleRate); err != nil {
		return nil, err
	}

	f, err := os.Open(ws.Converted())
	if err != nil {
		return nil, fmt.Errorf("open transcoded audio: %w", err)
	}
	defer f.Close()

	streamer, bf, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode transcoded audio: %w", err)
	}
	defer streamer.Close()

	return readMono(streamer, bf, d.sampleRate)
}

// readMono drains a beep stream, averaging both channels and resampling to
// sampleRate when the source rate differs.
func readMono(s beep.Streamer, format beep.Format, sampleRate int) (*Buffer, error) {
	src := s
	if int(format.SampleRate) != sampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(sampleRate), s)
	}

	chunk := make([][2]float64, 1024)
	var samples []float64
	for {
		n, ok := src.Stream(chunk)
		for i := 0; i < n; i++ {
			samples = append(samples, (chunk[i][0]+chunk[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("stream audio: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no audio samples", apperrors.ErrCorruptedFile)
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}
