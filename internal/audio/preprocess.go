package audio

import (
	"math"
)

// Preprocessing defaults for the /process-audio clean-up path.
const (
	PreEmphasisCoef = 0.97
	SplitTopDB      = 20.0
	SplitFrame      = 2048
	SplitHop        = 512
)

// Interval is a half-open [Start, End) sample range.
type Interval struct {
	Start int
	End   int
}

// PreEmphasis applies y[n] = x[n] - coef*x[n-1].
func PreEmphasis(x []float64, coef float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}
	y[0] = x[0]
	for i := 1; i < len(x); i++ {
		y[i] = x[i] - coef*x[i-1]
	}
	return y
}

// Normalize scales x so its peak absolute value is 1. Silent input is
// returned unchanged.
func Normalize(x []float64) []float64 {
	var peak float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	y := make([]float64, len(x))
	if peak == 0 {
		copy(y, x)
		return y
	}
	for i, v := range x {
		y[i] = v / peak
	}
	return y
}

// SplitNonSilent returns the sample intervals whose frame power lies within
// topDB of the loudest frame. Frames are centered on multiples of hop.
func SplitNonSilent(x []float64, topDB float64, frame, hop int) []Interval {
	if len(x) == 0 || frame <= 0 || hop <= 0 {
		return nil
	}

	numFrames := 1 + len(x)/hop
	power := make([]float64, numFrames)
	var ref float64
	for f := 0; f < numFrames; f++ {
		center := f * hop
		var sum float64
		for i := center - frame/2; i < center+frame/2; i++ {
			if i >= 0 && i < len(x) {
				sum += x[i] * x[i]
			}
		}
		power[f] = sum / float64(frame)
		ref = math.Max(ref, power[f])
	}
	if ref == 0 {
		return nil
	}

	floor := ref * math.Pow(10, -topDB/10)
	var intervals []Interval
	start := -1
	for f := 0; f <= numFrames; f++ {
		loud := f < numFrames && power[f] > floor
		switch {
		case loud && start < 0:
			start = f
		case !loud && start >= 0:
			intervals = append(intervals, Interval{
				Start: start * hop,
				End:   min(f*hop, len(x)),
			})
			start = -1
		}
	}
	return intervals
}

// Preprocess emphasizes, normalizes and trims silence from buf, returning a
// new buffer. When no loud interval is found the normalized signal is kept.
func Preprocess(buf *Buffer) (*Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	y := Normalize(PreEmphasis(buf.Samples, PreEmphasisCoef))

	intervals := SplitNonSilent(y, SplitTopDB, SplitFrame, SplitHop)
	if len(intervals) > 0 {
		var trimmed []float64
		for _, iv := range intervals {
			trimmed = append(trimmed, y[iv.Start:iv.End]...)
		}
		y = Normalize(trimmed)
	}

	return &Buffer{Samples: y, SampleRate: buf.SampleRate}, nil
}
