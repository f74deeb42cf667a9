// Package midi reads and writes note events as Standard MIDI Files.
package midi

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dygy/hum-grep/internal/melody"
)

const (
	// TicksPerQuarter is the file resolution.
	TicksPerQuarter = 960
	// DefaultBPM is used when the caller passes a non-positive tempo.
	DefaultBPM = 120.0

	channel = 0
)

// event is a note boundary at an absolute tick.
type event struct {
	tick     uint32
	off      bool
	key      uint8
	velocity uint8
}

// Write encodes notes as a single-track SMF at the given tempo.
func Write(w io.Writer, notes []melody.Note, bpm float64) error {
	if bpm <= 0 {
		bpm = DefaultBPM
	}

	events := make([]event, 0, 2*len(notes))
	for _, n := range notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return fmt.Errorf("note pitch %d out of MIDI range", n.Pitch)
		}
		key := uint8(n.Pitch)
		on := toTicks(n.StartTime, bpm)
		off := max(toTicks(n.End(), bpm), on+1)
		events = append(events,
			event{tick: on, key: key, velocity: uint8(min(max(n.Velocity, 1), 127))},
			event{tick: off, key: key, off: true},
		)
	}

	// note-offs first on ties so a repeated pitch retriggers
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("melody"))
	tr.Add(0, smf.MetaTempo(bpm))

	var last uint32
	for _, e := range events {
		msg := midi.NoteOn(channel, e.key, e.velocity)
		if e.off {
			msg = midi.NoteOff(channel, e.key)
		}
		tr.Add(e.tick-last, msg)
		last = e.tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}

// WriteFile writes notes to path.
func WriteFile(path string, notes []melody.Note, bpm float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create midi file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, notes, bpm)
}

// Read decodes the notes of every track in an SMF, ordered by start time.
// Unterminated notes are dropped.
func Read(r io.Reader) (notes []melody.Note, err error) {
	// smf panics on some malformed input
	defer func() {
		if rec := recover(); rec != nil {
			notes, err = nil, fmt.Errorf("parse smf: %v", rec)
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("parse smf: %w", err)
	}
	if len(s.Tracks) == 0 {
		return nil, errors.New("parse smf: no tracks")
	}

	type held struct {
		start    int64
		velocity uint8
	}

	for _, track := range s.Tracks {
		open := make(map[uint8][]held)
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0:
				open[key] = append(open[key], held{start: abs, velocity: vel})
			case ev.Message.GetNoteOn(&ch, &key, &vel), ev.Message.GetNoteOff(&ch, &key, &vel):
				stack := open[key]
				if len(stack) == 0 {
					continue
				}
				h := stack[0]
				open[key] = stack[1:]
				start := seconds(s.TimeAt(h.start))
				notes = append(notes, melody.Note{
					Pitch:     int(key),
					StartTime: start,
					Duration:  seconds(s.TimeAt(abs)) - start,
					Velocity:  int(h.velocity),
				})
			}
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].StartTime < notes[j].StartTime
	})
	return notes, nil
}

// Tempo returns the first tempo in the file, or DefaultBPM.
func Tempo(r io.Reader) (float64, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return 0, fmt.Errorf("parse smf: %w", err)
	}
	for _, track := range s.Tracks {
		for _, ev := range track {
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				return bpm, nil
			}
		}
	}
	return DefaultBPM, nil
}

func toTicks(sec, bpm float64) uint32 {
	return uint32(math.Round(max(sec, 0) * bpm / 60 * TicksPerQuarter))
}

func seconds(micros int64) float64 {
	return float64(micros) / 1e6
}
