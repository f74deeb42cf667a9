package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dygy/hum-grep/internal/audio"
	"github.com/dygy/hum-grep/internal/cache"
	"github.com/dygy/hum-grep/internal/melody"
	"github.com/dygy/hum-grep/internal/midi"
	"github.com/dygy/hum-grep/internal/progress"
	"github.com/dygy/hum-grep/internal/strudel"
)

// RunConfig describes a file-to-file extraction.
type RunConfig struct {
	InputPath         string
	OutputPath        string // JSON result; empty skips
	MIDIOutputPath    string
	StrudelOutputPath string
	BPM               float64
	Instrument        string
	Style             string
	ChordKey          string
	Cache             *cache.ResultCache // nil disables caching
}

// Execute decodes cfg.InputPath, extracts the melody and writes the
// requested outputs. The returned error covers input and output problems
// only; an unsuccessful extraction is reported in the result.
func (o *Orchestrator) Execute(ctx context.Context, decoder *audio.Decoder, rep *progress.Reporter, cfg RunConfig) (melody.Result, error) {
	rep.StartStage(progress.StageValidate)
	format, err := audio.ValidateInput(cfg.InputPath)
	if err != nil {
		return melody.Result{}, err
	}
	rep.StageComplete("Valid %s file", format)

	var cacheKey string
	if cfg.Cache != nil {
		cacheKey, err = cache.KeyForFile(cfg.InputPath)
		if err != nil {
			rep.Warning("Cache disabled: %v", err)
		} else if cached, ok := cfg.Cache.Get(cacheKey); ok {
			rep.StageComplete("Using cached result (key: %s)", cacheKey)
			return o.finish(rep, cached.Result, cfg)
		}
	}

	rep.StartStage(progress.StageDecode)
	buf, err := decoder.DecodeFile(ctx, cfg.InputPath)
	if err != nil {
		return melody.Result{}, fmt.Errorf("decode: %w", err)
	}
	rep.StageComplete("%.2f s of audio at %d Hz", buf.Duration(), buf.SampleRate)

	rep.StartStage(progress.StageAnalyze)
	result := o.Extract(buf)

	if cacheKey != "" && (result.Success || result.Message == MsgNoMelody) {
		if _, err := cfg.Cache.Put(cacheKey, cfg.InputPath, result); err != nil {
			o.logger.Warn("failed to cache result", "key", cacheKey, "error", err)
		} else {
			o.logger.Debug("result cached", "key", cacheKey, "dir", cfg.Cache.Dir())
		}
	}
	return o.finish(rep, result, cfg)
}

func (o *Orchestrator) finish(rep *progress.Reporter, result melody.Result, cfg RunConfig) (melody.Result, error) {
	if result.Success {
		rep.StageComplete("%s", result.Message)
	} else {
		rep.Warning("%s", result.Message)
	}
	for _, n := range result.Notes {
		rep.Note(strudel.NoteName(n.Pitch), n)
	}

	rep.StartStage(progress.StageExport)
	if err := o.export(rep, result, cfg); err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) export(rep *progress.Reporter, result melody.Result, cfg RunConfig) error {
	if cfg.OutputPath != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if err := os.WriteFile(cfg.OutputPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		rep.StageComplete("Result saved to %s", cfg.OutputPath)
	}

	if len(result.Notes) == 0 {
		if cfg.MIDIOutputPath != "" || cfg.StrudelOutputPath != "" {
			rep.Warning("No notes to export")
		}
		return nil
	}

	if cfg.MIDIOutputPath != "" {
		if err := midi.WriteFile(cfg.MIDIOutputPath, result.Notes, cfg.BPM); err != nil {
			return fmt.Errorf("write midi: %w", err)
		}
		rep.StageComplete("MIDI saved to %s", cfg.MIDIOutputPath)
	}

	if cfg.StrudelOutputPath != "" {
		gen := strudel.NewGeneratorWithStyle(16, strudel.SoundStyle(cfg.Style))
		gen.SetChordKey(cfg.ChordKey)

		code := fmt.Sprintf("// %s\n%s",
			strudel.Pattern(result.Notes, cfg.BPM, cfg.Instrument),
			gen.Generate(result.Notes, cfg.BPM))
		if err := os.WriteFile(cfg.StrudelOutputPath, []byte(code), 0644); err != nil {
			return fmt.Errorf("write strudel: %w", err)
		}
		rep.StageComplete("Strudel code saved to %s", cfg.StrudelOutputPath)
	}
	return nil
}
