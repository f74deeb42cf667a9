package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptedFile     = errors.New("file corrupted or unreadable")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
	ErrToolNotInstalled  = errors.New("required tool not installed")
	ErrDecodeFailed      = errors.New("audio decoding failed")

	ErrEmptyBuffer       = errors.New("empty audio buffer")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrNonFiniteSample   = errors.New("audio buffer contains NaN or infinite samples")

	// ErrNoMelody is not a fault: no frame passed the confidence threshold.
	ErrNoMelody = errors.New("no clear melody detected")
)

// ProcessError represents a failure in an external process
type ProcessError struct {
	Tool     string // "ffmpeg"
	Stage    string // "transcode"
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed at %s (exit %d): %s", e.Tool, e.Stage, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed at %s (exit %d)", e.Tool, e.Stage, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// NewProcessError creates a ProcessError
func NewProcessError(tool, stage string, exitCode int, stderr string, cause error) *ProcessError {
	return &ProcessError{
		Tool:     tool,
		Stage:    stage,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}

// AnalysisError reports malformed input rejected by a pitch-tracking stage.
type AnalysisError struct {
	Stage string // "validate", "analyze"
	Cause error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// NewAnalysisError creates an AnalysisError
func NewAnalysisError(stage string, cause error) *AnalysisError {
	return &AnalysisError{Stage: stage, Cause: cause}
}

// DecodeError collects the failure of every decoding strategy that was tried.
type DecodeError struct {
	Attempts []error
}

func (e *DecodeError) Error() string {
	msg := ErrDecodeFailed.Error()
	for _, err := range e.Attempts {
		msg += "; " + err.Error()
	}
	return msg
}

// Unwrap exposes ErrDecodeFailed together with each strategy's error.
func (e *DecodeError) Unwrap() []error {
	return append([]error{ErrDecodeFailed}, e.Attempts...)
}
