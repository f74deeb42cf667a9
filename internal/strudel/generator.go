// Package strudel renders extracted melodies as Strudel live-coding patterns.
package strudel

import (
	"fmt"
	"math"
	"strings"

	"github.com/dygy/hum-grep/internal/melody"
)

// SoundStyle defines preset sound combinations
type SoundStyle string

const (
	StylePiano      SoundStyle = "piano"
	StyleSynth      SoundStyle = "synth"
	StyleOrchestral SoundStyle = "orchestral"
	StyleElectronic SoundStyle = "electronic"
	StyleJazz       SoundStyle = "jazz"
	StyleLofi       SoundStyle = "lofi"
)

// SoundPalette defines the lead sound for the melody and the pad under it
type SoundPalette struct {
	Lead     string
	LeadGain float64
	Pad      string
	PadGain  float64
}

var soundPalettes = map[SoundStyle]SoundPalette{
	StylePiano: {
		Lead:     "gm_acoustic_grand_piano",
		LeadGain: 1.0,
		Pad:      "gm_acoustic_grand_piano",
		PadGain:  0.3,
	},
	StyleSynth: {
		Lead:     "gm_lead_2_sawtooth",
		LeadGain: 0.7,
		Pad:      "gm_pad_warm",
		PadGain:  0.3,
	},
	StyleOrchestral: {
		Lead:     "gm_violin",
		LeadGain: 0.9,
		Pad:      "gm_string_ensemble_1",
		PadGain:  0.4,
	},
	StyleElectronic: {
		Lead:     "gm_lead_1_square",
		LeadGain: 0.6,
		Pad:      "gm_pad_poly",
		PadGain:  0.3,
	},
	StyleJazz: {
		Lead:     "gm_vibraphone",
		LeadGain: 0.8,
		Pad:      "gm_electric_piano_1",
		PadGain:  0.4,
	},
	StyleLofi: {
		Lead:     "gm_music_box",
		LeadGain: 0.7,
		Pad:      "gm_electric_piano_2",
		PadGain:  0.3,
	},
}

const maxBars = 16

// Generator converts a melody into a complete Strudel program on a
// fixed rhythmic grid.
type Generator struct {
	quantize int
	style    SoundStyle
	palette  SoundPalette
	chordKey string
}

// NewGeneratorWithStyle creates a generator with the given style. Unknown
// styles use the piano palette; a quantize below 4 becomes 16.
func NewGeneratorWithStyle(quantize int, style SoundStyle) *Generator {
	palette, ok := soundPalettes[style]
	if !ok {
		style = StylePiano
		palette = soundPalettes[StylePiano]
	}
	if quantize < 4 {
		quantize = 16
	}
	return &Generator{
		quantize: quantize,
		style:    style,
		palette:  palette,
	}
}

// SetChordKey adds a DefaultProgression pad layer in key (C, G or F).
// An empty key removes it.
func (g *Generator) SetChordKey(key string) {
	g.chordKey = key
}

// Generate creates Strudel code for notes at bpm.
func (g *Generator) Generate(notes []melody.Note, bpm float64) string {
	if bpm <= 0 {
		bpm = defaultBPM
	}

	var sb strings.Builder
	sb.WriteString("// hum-grep output\n")
	fmt.Fprintf(&sb, "// BPM: %.0f, Notes: %d, Style: %s\n", bpm, len(notes), g.style)
	fmt.Fprintf(&sb, "setcps(%.0f/60/4)\n\n", bpm)

	beatDuration := 60.0 / bpm
	gridSize := beatDuration / float64(g.quantize/4)
	numBars := int(math.Ceil(melody.TotalDuration(notes) / (beatDuration * 4)))
	numBars = min(max(numBars, 1), maxBars)

	pattern := g.voiceToPattern(notes, gridSize, numBars)
	if pattern == "~" {
		fmt.Fprintf(&sb, "$: note(\"c4\").sound(\"%s\")\n", g.palette.Lead)
		return sb.String()
	}

	lead := fmt.Sprintf("note(\"%s\")\n    .sound(\"%s\")", pattern, g.palette.Lead)
	if g.palette.LeadGain != 1.0 {
		lead += fmt.Sprintf("\n    .gain(%.1f)", g.palette.LeadGain)
	}

	if g.chordKey == "" {
		sb.WriteString("$: ")
		sb.WriteString(lead)
		sb.WriteString("\n  .room(0.3).size(0.6)\n")
		return sb.String()
	}

	pad := strings.Replace(ChordProgression(g.chordKey, DefaultProgression),
		`sound("pad")`, fmt.Sprintf("sound(%q)", g.palette.Pad), 1)
	pad = strings.Replace(pad, ".gain(0.3)", fmt.Sprintf(".gain(%.1f)", g.palette.PadGain), 1)

	sb.WriteString("$: stack(\n")
	fmt.Fprintf(&sb, "  // melody (%d notes)\n  %s,\n", len(notes), lead)
	fmt.Fprintf(&sb, "  // chords (%s)\n  %s.slow(%d)\n", g.chordKey, pad, numBars)
	sb.WriteString(")\n  .room(0.3).size(0.6)\n")
	return sb.String()
}

// voiceToPattern places note onsets on the grid, one mini-notation bar per
// measure. Bars with only rests are dropped.
func (g *Generator) voiceToPattern(notes []melody.Note, gridSize float64, numBars int) string {
	if len(notes) == 0 {
		return "~"
	}

	slotsPerBar := g.quantize
	totalSlots := slotsPerBar * numBars

	slots := make([]string, totalSlots)
	for _, n := range notes {
		slot := int(n.StartTime / gridSize)
		if slot >= 0 && slot < totalSlots && slots[slot] == "" {
			slots[slot] = strings.ToLower(NoteName(n.Pitch))
		}
	}

	var bars []string
	for bar := 0; bar < numBars; bar++ {
		parts := make([]string, slotsPerBar)
		for i := range parts {
			parts[i] = slots[bar*slotsPerBar+i]
			if parts[i] == "" {
				parts[i] = "~"
			}
		}

		simplified := simplifyPattern(parts)
		if !isAllRests(simplified) {
			bars = append(bars, simplified)
		}
	}

	if len(bars) == 0 {
		return "~"
	}
	return strings.Join(bars, " | ")
}

// simplifyPattern collapses runs of rests and drops trailing ones
func simplifyPattern(parts []string) string {
	var result []string
	restCount := 0

	for _, p := range parts {
		if p == "~" {
			restCount++
			continue
		}
		switch restCount {
		case 0:
		case 1:
			result = append(result, "~")
		default:
			result = append(result, fmt.Sprintf("~*%d", restCount))
		}
		restCount = 0
		result = append(result, p)
	}

	if len(result) == 0 {
		return "~"
	}
	return strings.Join(result, " ")
}

func isAllRests(pattern string) bool {
	for _, p := range strings.Fields(pattern) {
		if p != "~" && !strings.HasPrefix(p, "~*") {
			return false
		}
	}
	return true
}

// AvailableStyles returns list of available sound styles
func AvailableStyles() []SoundStyle {
	return []SoundStyle{
		StylePiano,
		StyleSynth,
		StyleOrchestral,
		StyleElectronic,
		StyleJazz,
		StyleLofi,
	}
}

// ParseStyle resolves a style name. An empty name selects piano.
func ParseStyle(name string) (SoundStyle, error) {
	if name == "" {
		return StylePiano, nil
	}
	names := make([]string, 0, len(soundPalettes))
	for _, s := range AvailableStyles() {
		if strings.EqualFold(name, string(s)) {
			return s, nil
		}
		names = append(names, string(s))
	}
	return "", fmt.Errorf("unknown style %q (available: %s)", name, strings.Join(names, ", "))
}

// StyleDescription returns a description for each style
func StyleDescription(style SoundStyle) string {
	descriptions := map[SoundStyle]string{
		StylePiano:      "Acoustic grand piano lead and chords",
		StyleSynth:      "Sawtooth lead over a warm pad",
		StyleOrchestral: "Violin over string ensemble",
		StyleElectronic: "Square lead over a poly pad",
		StyleJazz:       "Vibraphone over electric piano",
		StyleLofi:       "Music box over electric piano 2",
	}
	return descriptions[style]
}
