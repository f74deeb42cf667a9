// Package pitch estimates per-frame pitch candidates from a mono buffer.
package pitch

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/dygy/hum-grep/internal/audio"
	apperrors "github.com/dygy/hum-grep/internal/errors"
)

// Candidate is one spectral peak in a frame.
type Candidate struct {
	PitchHz  float64
	Strength float64
}

// Frame holds the candidates found at a hop-aligned time step.
type Frame struct {
	Time       float64
	Candidates []Candidate
}

// Analysis is the per-frame output of an Analyzer.
type Analysis struct {
	Frames    []Frame
	FrameTime float64 // hop / sample rate
}

// Analyzer produces pitch candidates for every frame of a buffer.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(buf *audio.Buffer) (*Analysis, error)
}

// Config holds analyzer parameters
type Config struct {
	Hop           int     // samples between frames
	FrameLength   int     // FFT size, a multiple of Hop
	FMin          float64 // lowest candidate frequency (Hz)
	FMax          float64 // highest candidate frequency (Hz)
	PeakThreshold float64 // peaks below this fraction of the frame maximum are ignored
	CenterSpan    int     // samples around the frame center that must carry the tone; 0 disables
}

// centerRatio is the minimum ratio of the center span's amplitude to the
// strongest peak. Frames below it only see a tone in the window's tails.
const centerRatio = 0.5

// DefaultConfig returns the analyzer configuration used by the service
func DefaultConfig() Config {
	return Config{
		Hop:           512,
		FrameLength:   2048,
		FMin:          60,   // just under C2 (65.4 Hz)
		FMax:          2100, // just over C7 (2093 Hz)
		PeakThreshold: 0.1,
		CenterSpan:    256,
	}
}

func (c Config) validate() error {
	switch {
	case c.Hop <= 0:
		return fmt.Errorf("hop must be positive, got %d", c.Hop)
	case c.FrameLength < 4 || c.FrameLength%2 != 0:
		return fmt.Errorf("frame length must be even and at least 4, got %d", c.FrameLength)
	case c.FMin <= 0 || c.FMax <= c.FMin:
		return fmt.Errorf("invalid frequency range [%g, %g]", c.FMin, c.FMax)
	case c.PeakThreshold < 0 || c.PeakThreshold >= 1:
		return fmt.Errorf("peak threshold must be in [0, 1), got %g", c.PeakThreshold)
	case c.CenterSpan < 0 || c.CenterSpan > c.FrameLength:
		return fmt.Errorf("center span must be in [0, %d], got %d", c.FrameLength, c.CenterSpan)
	}
	return nil
}

// SpectralAnalyzer tracks pitch by picking interpolated peaks of a
// Hann-windowed short-time Fourier transform.
//
// The window and configuration are immutable after construction; FFT plans
// carry scratch space and are taken from a pool per call, so a single
// SpectralAnalyzer can serve concurrent requests.
type SpectralAnalyzer struct {
	cfg    Config
	window []float64
	gain   float64 // maps peak magnitude to sinusoid amplitude
	plans  sync.Pool
}

// NewSpectralAnalyzer creates an analyzer for cfg.
func NewSpectralAnalyzer(cfg Config) (*SpectralAnalyzer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pitch config: %w", err)
	}

	n := cfg.FrameLength
	window := make([]float64, n)
	var sum float64
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		sum += window[i]
	}

	a := &SpectralAnalyzer{
		cfg:    cfg,
		window: window,
		gain:   2 / sum,
	}
	a.plans.New = func() any { return fourier.NewFFT(n) }
	return a, nil
}

var shared = sync.OnceValue(func() *SpectralAnalyzer {
	a, err := NewSpectralAnalyzer(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return a
})

// Shared returns the process-wide analyzer built from DefaultConfig. It is
// created on first use and never torn down.
func Shared() *SpectralAnalyzer {
	return shared()
}

// Config returns the analyzer's configuration.
func (a *SpectralAnalyzer) Config() Config {
	return a.cfg
}

// Analyze computes candidates for every frame. Frames are centered on
// multiples of the hop, with zeros beyond both edges of the signal. A frame
// whose center span is too quiet for its strongest peak reports no
// candidates.
func (a *SpectralAnalyzer) Analyze(buf *audio.Buffer) (*Analysis, error) {
	if err := buf.Validate(); err != nil {
		return nil, apperrors.NewAnalysisError("analyze", err)
	}

	n := a.cfg.FrameLength
	hop := a.cfg.Hop
	padded := zeroPad(buf.Samples, n/2)
	numFrames := 1 + len(buf.Samples)/hop
	frameTime := float64(hop) / float64(buf.SampleRate)

	binHz := float64(buf.SampleRate) / float64(n)
	lo := max(1, int(math.Ceil(a.cfg.FMin/binHz)))
	hi := min(n/2-1, int(math.Floor(a.cfg.FMax/binHz)))

	fft := a.plans.Get().(*fourier.FFT)
	defer a.plans.Put(fft)

	frame := make([]float64, n)
	coeff := make([]complex128, n/2+1)
	mag := make([]float64, n/2+1)

	frames := make([]Frame, numFrames)
	for f := range frames {
		start := f * hop
		for i := range frame {
			frame[i] = padded[start+i] * a.window[i]
		}
		coeff = fft.Coefficients(coeff, frame)

		var peak float64
		for k, c := range coeff {
			mag[k] = cmplx.Abs(c)
			peak = math.Max(peak, mag[k])
		}

		candidates := a.peaks(mag, lo, hi, peak, binHz)
		if !a.centered(padded[start+n/2-a.cfg.CenterSpan/2:], candidates) {
			candidates = nil
		}

		frames[f] = Frame{
			Time:       float64(f) * frameTime,
			Candidates: candidates,
		}
	}

	return &Analysis{Frames: frames, FrameTime: frameTime}, nil
}

// peaks returns local maxima in mag[lo..hi] above the relative threshold,
// refined by parabolic interpolation.
func (a *SpectralAnalyzer) peaks(mag []float64, lo, hi int, peak, binHz float64) []Candidate {
	if peak == 0 {
		return nil
	}
	floor := a.cfg.PeakThreshold * peak

	var out []Candidate
	for k := lo; k <= hi; k++ {
		if mag[k] <= floor || mag[k] <= mag[k-1] || mag[k] < mag[k+1] {
			continue
		}
		avg := 0.5 * (mag[k+1] - mag[k-1])
		curve := 2*mag[k] - mag[k-1] - mag[k+1]
		var shift float64
		if math.Abs(curve) > 1e-12 {
			shift = avg / curve
		}
		out = append(out, Candidate{
			PitchHz:  (float64(k) + shift) * binHz,
			Strength: (mag[k] + 0.5*avg*shift) * a.gain,
		})
	}
	return out
}

// centered reports whether the first CenterSpan samples of x are loud
// enough to hold the strongest candidate.
func (a *SpectralAnalyzer) centered(x []float64, candidates []Candidate) bool {
	span := a.cfg.CenterSpan
	if span == 0 || len(candidates) == 0 {
		return true
	}
	best, _ := strongest(candidates)

	var energy float64
	for _, v := range x[:span] {
		energy += v * v
	}
	amplitude := math.Sqrt(2 * energy / float64(span))
	return amplitude >= centerRatio*best.Strength
}

// zeroPad surrounds x with pad zeros on each side.
func zeroPad(x []float64, pad int) []float64 {
	out := make([]float64, len(x)+2*pad)
	copy(out[pad:], x)
	return out
}
