package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	apperrors "github.com/dygy/hum-grep/internal/errors"
)

// FFmpegEnv overrides the ffmpeg binary used for transcoding.
const FFmpegEnv = "HUM_GREP_FFMPEG"

// Result holds command execution output
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands with context support
type Runner struct {
	FFmpegPath string
}

// NewRunner creates a new command runner
func NewRunner(ffmpegPath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = os.Getenv(FFmpegEnv)
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Runner{FFmpegPath: ffmpegPath}
}

// Transcode converts any container ffmpeg understands into a mono 16-bit WAV
// at the given sample rate.
func (r *Runner) Transcode(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	if err := r.CheckFFmpeg(); err != nil {
		return apperrors.NewProcessError("ffmpeg", "transcode", -1, "", err)
	}

	result, err := r.execute(ctx, r.FFmpegPath,
		"-y", "-loglevel", "error",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "wav",
		outputPath,
	)
	if err != nil {
		return apperrors.NewProcessError("ffmpeg", "transcode", result.ExitCode, result.Stderr, err)
	}
	return nil
}

// CheckFFmpeg verifies the ffmpeg binary can be found
func (r *Runner) CheckFFmpeg() error {
	if _, err := exec.LookPath(r.FFmpegPath); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrToolNotInstalled, r.FFmpegPath)
	}
	return nil
}

// execute runs a command and captures output
func (r *Runner) execute(ctx context.Context, name string, args ...string) (*Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}

	if err != nil {
		return result, fmt.Errorf("command failed: %w", err)
	}

	return result, nil
}
