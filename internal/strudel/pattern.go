package strudel

import (
	"fmt"
	"strings"

	"github.com/dygy/hum-grep/internal/melody"
)

// DefaultProgression is the pop I-V-vi-IV cadence.
const DefaultProgression = "I-V-vi-IV"

const defaultBPM = 120.0

var noteNames = [12]string{"C", "Cs", "D", "Ds", "E", "F", "Fs", "G", "Gs", "A", "As", "B"}

// chordRoots maps a key and roman numeral to the chord root.
var chordRoots = map[string]map[string]string{
	"C": {"I": "c4", "V": "g4", "vi": "a4", "IV": "f4"},
	"G": {"I": "g4", "V": "d4", "vi": "e4", "IV": "c4"},
	"F": {"I": "f4", "V": "c4", "vi": "d4", "IV": "a4"},
}

// NoteName converts a MIDI note number to Strudel notation, e.g. 60 -> "C4", 61 -> "Cs4".
func NoteName(pitch int) string {
	octave := floorDiv(pitch, 12) - 1
	return fmt.Sprintf("%s%d", noteNames[pitch-floorDiv(pitch, 12)*12], octave)
}

// DurationSymbol returns the mini-notation suffix for a note lasting
// duration seconds at bpm, measured against one beat.
func DurationSymbol(duration, bpm float64) string {
	if bpm <= 0 {
		bpm = defaultBPM
	}
	ratio := duration / (60 / bpm)

	switch {
	case ratio <= 0.125:
		return "!"
	case ratio <= 0.25:
		return "."
	case ratio <= 0.5:
		return ""
	case ratio <= 0.75:
		return "t"
	case ratio <= 1.0:
		return "_"
	case ratio <= 1.5:
		return "t_"
	case ratio <= 2.0:
		return "__"
	default:
		return "___"
	}
}

// Pattern renders notes as a single Strudel expression. An empty melody is "~".
func Pattern(notes []melody.Note, bpm float64, instrument string) string {
	if len(notes) == 0 {
		return "~"
	}
	if instrument == "" {
		instrument = "piano"
	}

	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = NoteName(n.Pitch) + DurationSymbol(n.Duration, bpm)
	}
	return fmt.Sprintf(`sound("%s").note("%s")`, instrument, strings.Join(parts, " "))
}

// ChordProgression renders a pad layer for a dash-separated roman numeral
// progression. Unknown keys fall back to C; unknown numerals are skipped.
func ChordProgression(key, progression string) string {
	roots, ok := chordRoots[key]
	if !ok {
		roots = chordRoots["C"]
	}
	if progression == "" {
		progression = DefaultProgression
	}

	var chords []string
	for _, numeral := range strings.Split(progression, "-") {
		if root, ok := roots[strings.TrimSpace(numeral)]; ok {
			chords = append(chords, root)
		}
	}
	return fmt.Sprintf(`sound("pad").chord("%s").gain(0.3)`, strings.Join(chords, " "))
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
