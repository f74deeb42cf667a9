package strudel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/hum-grep/internal/melody"
)

// simpleMelody is the front-end's "simple" example.
var simpleMelody = []melody.Note{
	{Pitch: 60, StartTime: 0, Duration: 0.5, Velocity: 80},
	{Pitch: 62, StartTime: 0.5, Duration: 0.5, Velocity: 80},
	{Pitch: 64, StartTime: 1.0, Duration: 0.5, Velocity: 80},
	{Pitch: 65, StartTime: 1.5, Duration: 0.5, Velocity: 80},
	{Pitch: 67, StartTime: 2.0, Duration: 1.0, Velocity: 90},
	{Pitch: 67, StartTime: 3.0, Duration: 1.0, Velocity: 90},
}

func TestNoteName(t *testing.T) {
	cases := map[int]string{
		60:  "C4",
		61:  "Cs4",
		69:  "A4",
		58:  "As3",
		36:  "C2",
		96:  "C7",
		0:   "C-1",
		127: "G9",
	}
	for pitch, want := range cases {
		assert.Equal(t, want, NoteName(pitch), "pitch %d", pitch)
	}
}

func TestDurationSymbol(t *testing.T) {
	cases := []struct {
		duration float64
		want     string
	}{
		{0.05, "!"},
		{0.0625, "!"},
		{0.1, "."},
		{0.25, ""},
		{0.3, "t"},
		{0.5, "_"},
		{0.7, "t_"},
		{1.0, "__"},
		{1.5, "___"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DurationSymbol(tc.duration, 120), "duration %g", tc.duration)
	}

	assert.Equal(t, DurationSymbol(0.5, 120), DurationSymbol(0.5, 0))
	assert.Equal(t, "", DurationSymbol(0.5, 60))
}

func TestPattern(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		got := Pattern(simpleMelody, 120, "piano")
		assert.Equal(t, `sound("piano").note("C4_ D4_ E4_ F4_ G4__ G4__")`, got)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, "~", Pattern(nil, 120, "piano"))
	})

	t.Run("DefaultInstrument", func(t *testing.T) {
		got := Pattern(simpleMelody[:1], 120, "")
		assert.Equal(t, `sound("piano").note("C4_")`, got)
	})
}

func TestChordProgression(t *testing.T) {
	cases := []struct {
		name, key, progression, want string
	}{
		{"C", "C", "I-V-vi-IV", `sound("pad").chord("c4 g4 a4 f4").gain(0.3)`},
		{"G", "G", "I-V-vi-IV", `sound("pad").chord("g4 d4 e4 c4").gain(0.3)`},
		{"F", "F", "IV-I", `sound("pad").chord("a4 f4").gain(0.3)`},
		{"UnknownKey", "Eb", "I-V", `sound("pad").chord("c4 g4").gain(0.3)`},
		{"UnknownNumeral", "C", "I-ii-V", `sound("pad").chord("c4 g4").gain(0.3)`},
		{"DefaultProgression", "C", "", `sound("pad").chord("c4 g4 a4 f4").gain(0.3)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ChordProgression(tc.key, tc.progression))
		})
	}
}

func TestGenerateMelodyOnly(t *testing.T) {
	gen := NewGeneratorWithStyle(16, StylePiano)
	output := gen.Generate(simpleMelody, 120)

	assert.Contains(t, output, "// BPM: 120, Notes: 6, Style: piano")
	assert.Contains(t, output, "setcps(120/60/4)")
	assert.Contains(t, output, `$: note("c4 ~*3 d4 ~*3 e4 ~*3 f4 | g4 ~*7 g4")`)
	assert.Contains(t, output, `.sound("gm_acoustic_grand_piano")`)
	assert.NotContains(t, output, ".gain(")
	assert.NotContains(t, output, "stack(")
}

func TestGenerateWithChords(t *testing.T) {
	gen := NewGeneratorWithStyle(16, StyleSynth)
	gen.SetChordKey("G")

	output := gen.Generate(simpleMelody, 120)

	assert.True(t, strings.Contains(output, "$: stack("), output)
	assert.Contains(t, output, `.sound("gm_lead_2_sawtooth")`)
	assert.Contains(t, output, ".gain(0.7)")
	assert.Contains(t, output, `sound("gm_pad_warm").chord("g4 d4 e4 c4").gain(0.3).slow(2)`)
}

func TestGenerateEdgeCases(t *testing.T) {
	t.Run("EmptyMelody", func(t *testing.T) {
		output := NewGeneratorWithStyle(16, StylePiano).Generate(nil, 120)
		assert.Contains(t, output, `$: note("c4").sound("gm_acoustic_grand_piano")`)
	})

	t.Run("UnknownStyleFallsBack", func(t *testing.T) {
		gen := NewGeneratorWithStyle(16, SoundStyle("polka"))
		assert.Contains(t, gen.Generate(simpleMelody, 120), "Style: piano")
	})

	t.Run("DefaultTempo", func(t *testing.T) {
		output := NewGeneratorWithStyle(16, StylePiano).Generate(simpleMelody, 0)
		assert.Contains(t, output, "setcps(120/60/4)")
	})

	t.Run("SameSlotKeepsFirstNote", func(t *testing.T) {
		notes := []melody.Note{
			{Pitch: 60, StartTime: 0, Duration: 0.05},
			{Pitch: 72, StartTime: 0.05, Duration: 0.05},
		}
		output := NewGeneratorWithStyle(16, StylePiano).Generate(notes, 120)
		assert.Contains(t, output, `note("c4")`)
	})
}

func TestParseStyle(t *testing.T) {
	style, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StylePiano, style)

	style, err = ParseStyle("Jazz")
	require.NoError(t, err)
	assert.Equal(t, StyleJazz, style)

	_, err = ParseStyle("polka")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "piano, synth, orchestral, electronic, jazz, lofi")
}

func TestAvailableStylesDescribed(t *testing.T) {
	for _, s := range AvailableStyles() {
		assert.NotEmpty(t, StyleDescription(s), s)
		_, ok := soundPalettes[s]
		assert.True(t, ok, s)
	}
}
