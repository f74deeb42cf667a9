package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dygy/hum-grep/internal/audio"
	apperrors "github.com/dygy/hum-grep/internal/errors"
	"github.com/dygy/hum-grep/internal/melody"
	"github.com/dygy/hum-grep/internal/pitch"
)

// Result messages
const (
	MsgNoMelody   = "no clear melody detected"
	MsgSimulated  = "used simulated melody"
	msgExtracted  = "extracted %d notes"
	msgFailPrefix = "melody extraction failed: "
)

// NoMelodyPolicy decides what a run that finds no notes reports.
type NoMelodyPolicy int

const (
	// PolicyReportFailure returns success=false with no notes.
	PolicyReportFailure NoMelodyPolicy = iota
	// PolicySimulate returns a placeholder scale melody marked as simulated.
	PolicySimulate
)

func (p NoMelodyPolicy) String() string {
	switch p {
	case PolicySimulate:
		return "simulate"
	default:
		return "report-failure"
	}
}

// Config holds pipeline configuration
type Config struct {
	Policy    NoMelodyPolicy
	Threshold float64 // minimum strength of a voiced frame
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Policy:    PolicyReportFailure,
		Threshold: pitch.ConfidenceThreshold,
	}
}

// Orchestrator runs analyze, select, quantize and merge over a buffer.
// It holds no per-run state and may be shared between goroutines.
type Orchestrator struct {
	analyzer pitch.Analyzer
	cfg      Config
	logger   *slog.Logger
}

// NewOrchestrator creates a new pipeline orchestrator. A nil logger discards output.
func NewOrchestrator(analyzer pitch.Analyzer, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Fingerprint identifies everything that shapes extraction output, for use
// as a result cache version.
func (o *Orchestrator) Fingerprint() string {
	analyzer := fmt.Sprintf("%T", o.analyzer)
	if c, ok := o.analyzer.(interface{ Config() pitch.Config }); ok {
		analyzer = fmt.Sprintf("%s%+v", analyzer, c.Config())
	}
	return fmt.Sprintf("%s|policy=%s|threshold=%g", analyzer, o.cfg.Policy, o.cfg.Threshold)
}

// Extract turns a buffer into a melody result. Failures, including panics
// inside the analyzer, are reported in the result rather than returned.
func (o *Orchestrator) Extract(buf *audio.Buffer) (res melody.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("melody extraction panicked", "panic", r)
			res = failure(fmt.Errorf("internal error: %v", r))
		}
	}()

	notes, err := o.notes(buf)
	if err != nil {
		o.logger.Warn("melody extraction failed", "error", err)
		return failure(err)
	}

	if len(notes) == 0 {
		return o.noMelody(buf)
	}

	return melody.Result{
		Success:       true,
		Message:       fmt.Sprintf(msgExtracted, len(notes)),
		Notes:         notes,
		TotalDuration: melody.TotalDuration(notes),
	}
}

func (o *Orchestrator) notes(buf *audio.Buffer) ([]melody.Note, error) {
	if buf == nil {
		return nil, apperrors.NewAnalysisError("analyze", apperrors.ErrEmptyBuffer)
	}

	analysis, err := o.analyzer.Analyze(buf)
	if err != nil {
		return nil, err
	}

	obs := pitch.SelectDominant(analysis.Frames, o.cfg.Threshold)
	frames, rejected := melody.Quantize(obs, analysis.FrameTime)
	notes := melody.Merge(frames)

	o.logger.Debug("melody extracted",
		"frames", len(analysis.Frames),
		"observations", len(obs),
		"out_of_range", rejected,
		"notes", len(notes),
	)
	return notes, nil
}

func (o *Orchestrator) noMelody(buf *audio.Buffer) melody.Result {
	o.logger.Debug("no melody detected", "policy", o.cfg.Policy.String())

	if o.cfg.Policy == PolicySimulate {
		notes := melody.Simulate(buf.Duration())
		return melody.Result{
			Success:       true,
			Message:       MsgSimulated,
			Notes:         notes,
			TotalDuration: melody.TotalDuration(notes),
		}
	}

	return melody.Result{
		Success: false,
		Message: MsgNoMelody,
		Notes:   []melody.Note{},
	}
}

func failure(err error) melody.Result {
	return melody.Result{
		Success: false,
		Message: msgFailPrefix + err.Error(),
		Notes:   []melody.Note{},
	}
}

// Err maps an unsuccessful result to an error: apperrors.ErrNoMelody when
// nothing was heard, otherwise an error carrying the result message.
func Err(res melody.Result) error {
	switch {
	case res.Success:
		return nil
	case res.Message == MsgNoMelody:
		return apperrors.ErrNoMelody
	default:
		return errors.New(res.Message)
	}
}
