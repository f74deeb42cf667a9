package melody

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/hum-grep/internal/pitch"
)

const frameTime = 512.0 / 22050

func TestHzToMIDI(t *testing.T) {
	cases := []struct {
		hz   float64
		want int
	}{
		{440, 69},
		{261.63, 60},
		{65.41, 36},
		{2093, 96},
		{453, 70}, // closer to A#4 than A4
		{27.5, 21},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HzToMIDI(tc.hz), "%g Hz", tc.hz)
	}
}

func TestVelocity(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0, Velocity(0))
	assert.Equal(80, Velocity(0.8))
	assert.Equal(13, Velocity(0.125))
	assert.Equal(127, Velocity(3.5))
	assert.Equal(0, Velocity(-0.2))
}

func TestQuantizeRangeGate(t *testing.T) {
	obs := []pitch.Observation{
		{Time: 0, PitchHz: 440, Strength: 0.5},
		{Time: 0.1, PitchHz: 40, Strength: 0.9},   // below C2
		{Time: 0.2, PitchHz: 4000, Strength: 0.9}, // above C7
		{Time: 0.3, PitchHz: 65.41, Strength: 0.2},
	}

	notes, rejected := Quantize(obs, frameTime)

	assert.Equal(t, 2, rejected)
	assert.Equal(t, []Note{
		{Pitch: 69, StartTime: 0, Duration: frameTime, Velocity: 50},
		{Pitch: 36, StartTime: 0.3, Duration: frameTime, Velocity: 20},
	}, notes)
}

func frames(pitches []int, start float64) []Note {
	out := make([]Note, len(pitches))
	for i, p := range pitches {
		out[i] = Note{Pitch: p, StartTime: start + float64(i)*frameTime, Duration: frameTime, Velocity: 50 + i}
	}
	return out
}

func TestMerge(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Merge(nil))
	})

	t.Run("SustainedFramesBecomeOneNote", func(t *testing.T) {
		in := frames([]int{60, 60, 61, 59, 60, 60, 60, 60, 60, 60}, 0)

		got := Merge(in)

		require.Len(t, got, 1)
		assert.Equal(t, 60, got[0].Pitch)
		assert.InDelta(t, 10*frameTime, got[0].Duration, 1e-9)
		assert.Equal(t, 59, got[0].Velocity)
	})

	t.Run("FirstFramePitchWins", func(t *testing.T) {
		got := Merge(frames([]int{62, 63, 64}, 0))
		require.Len(t, got, 1)
		assert.Equal(t, 62, got[0].Pitch)
	})

	t.Run("PitchJumpSplits", func(t *testing.T) {
		in := append(frames([]int{60, 60, 60}, 0), frames([]int{64, 64}, 3*frameTime)...)

		got := Merge(in)

		require.Len(t, got, 2)
		assert.Equal(t, 60, got[0].Pitch)
		assert.Equal(t, 64, got[1].Pitch)
		assert.InDelta(t, 3*frameTime, got[1].StartTime, 1e-9)
	})

	t.Run("DriftIsMeasuredFromFirstPitch", func(t *testing.T) {
		// 60 -> 62 stays, 62 -> 63 is three semitones from the note's 60.
		got := Merge(frames([]int{60, 62, 63}, 0))
		require.Len(t, got, 2)
		assert.Equal(t, 63, got[1].Pitch)
	})

	t.Run("GapSplits", func(t *testing.T) {
		in := append(frames([]int{60, 60}, 0), frames([]int{60, 60}, frameTime+TimeThreshold+1e-9)...)

		got := Merge(in)

		require.Len(t, got, 2)
		assert.InDelta(t, 2*frameTime, got[0].Duration, 1e-9)
	})

	t.Run("GapIsMeasuredBetweenOnsets", func(t *testing.T) {
		// The silence after the second frame is shorter than TimeThreshold,
		// but the onsets are a full threshold apart.
		in := append(frames([]int{60, 60}, 0), frames([]int{60}, frameTime+TimeThreshold+1e-9)...)
		silence := in[2].StartTime - in[1].End()
		require.Less(t, silence, TimeThreshold)

		assert.Len(t, Merge(in), 2)
	})

	t.Run("OnsetsJustUnderThresholdBridge", func(t *testing.T) {
		in := append(frames([]int{60, 60}, 0), frames([]int{60}, frameTime+TimeThreshold-1e-6)...)
		assert.Len(t, Merge(in), 1)
	})

	t.Run("ShortGapBridged", func(t *testing.T) {
		in := append(frames([]int{60, 60}, 0), frames([]int{60}, 2*frameTime+0.05)...)

		got := Merge(in)

		require.Len(t, got, 1)
		assert.InDelta(t, 3*frameTime+0.05, got[0].Duration, 1e-9)
	})

	t.Run("InputUntouched", func(t *testing.T) {
		in := frames([]int{60, 60, 60}, 0)
		snapshot := append([]Note(nil), in...)
		Merge(in)
		assert.Equal(t, snapshot, in)
	})
}

func TestSimulateFourSeconds(t *testing.T) {
	notes := Simulate(4.0)

	require.Len(t, notes, 8)

	var pitches, velocities []int
	var durations []float64
	var start float64
	for _, n := range notes {
		pitches = append(pitches, n.Pitch)
		durations = append(durations, n.Duration)
		velocities = append(velocities, n.Velocity)
		assert.InDelta(t, start, n.StartTime, 1e-12)
		start += n.Duration
	}

	assert := assert.New(t)
	assert.Equal([]int{60, 62, 64, 65, 67, 69, 71, 72}, pitches)
	assert.Equal([]float64{1, 0.5, 0.5, 1, 0.5, 0.5, 1, 0.5}, durations)
	assert.Equal([]int{80, 80, 80, 80, 80, 80, 80, 80}, velocities)
	assert.InDelta(5.5, TotalDuration(notes), 1e-12)
	assert.Equal(notes, Simulate(4.0))
}

func TestSimulateNoteCount(t *testing.T) {
	cases := []struct {
		duration float64
		want     int
	}{
		{0, 4},
		{1.2, 4},
		{2.6, 5},
		{10, 20},
	}
	for _, tc := range cases {
		notes := Simulate(tc.duration)
		assert.Len(t, notes, tc.want, "duration %g", tc.duration)
	}

	// Scale wraps after one octave.
	long := Simulate(5)
	assert.Equal(t, 60, long[8].Pitch)
	assert.Equal(t, 62, long[9].Pitch)
}

func TestTotalDuration(t *testing.T) {
	assert.Zero(t, TotalDuration(nil))

	notes := []Note{
		{StartTime: 0, Duration: 2},
		{StartTime: 1, Duration: 0.5},
	}
	assert.Equal(t, 2.0, TotalDuration(notes))
}

func TestResultJSON(t *testing.T) {
	res := Result{
		Success:       true,
		Message:       "extracted 1 notes",
		Notes:         []Note{{Pitch: 60, StartTime: 0, Duration: 0.5, Velocity: 80}},
		TotalDuration: 0.5,
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"success": true,
		"message": "extracted 1 notes",
		"notes": [{"pitch": 60, "start_time": 0, "duration": 0.5, "velocity": 80}],
		"total_duration": 0.5
	}`, string(data))
}
