// Package melody turns pitch observations into note events.
package melody

import (
	"golang.org/x/exp/constraints"
)

// Note represents a single MIDI note event
type Note struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
}

// End returns the time the note stops sounding.
func (n Note) End() float64 {
	return n.StartTime + n.Duration
}

// Result is the outcome of one extraction
type Result struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	Notes         []Note  `json:"notes"`
	TotalDuration float64 `json:"total_duration"`
}

// TotalDuration returns the latest note end, or 0 for no notes.
func TotalDuration(notes []Note) float64 {
	var total float64
	for _, n := range notes {
		total = max(total, n.End())
	}
	return total
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
