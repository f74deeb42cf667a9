package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/dygy/hum-grep/internal/melody"
)

// Stage represents a processing stage
type Stage struct {
	Number      int
	Total       int
	Name        string
	Description string
}

// Stages of an extract run
var (
	StageValidate = Stage{1, 4, "validate", "Validating input file..."}
	StageDecode   = Stage{2, 4, "decode", "Decoding audio..."}
	StageAnalyze  = Stage{3, 4, "analyze", "Extracting melody..."}
	StageExport   = Stage{4, 4, "export", "Writing outputs..."}
)

// Reporter handles CLI progress output
type Reporter struct {
	out       io.Writer
	startTime time.Time
	verbose   bool
}

// NewReporter creates a new progress reporter
func NewReporter(out io.Writer, verbose bool) *Reporter {
	return &Reporter{
		out:       out,
		startTime: time.Now(),
		verbose:   verbose,
	}
}

// StartStage announces the beginning of a processing stage
func (r *Reporter) StartStage(stage Stage) {
	fmt.Fprintf(r.out, "[%d/%d] %s\n", stage.Number, stage.Total, stage.Description)
}

// Update shows a sub-progress message within a stage
func (r *Reporter) Update(format string, args ...any) {
	if r.verbose {
		fmt.Fprintf(r.out, "       %s\n", fmt.Sprintf(format, args...))
	}
}

// Note lists one extracted note (name, onset, duration, velocity) in verbose mode.
func (r *Reporter) Note(name string, n melody.Note) {
	r.Update("%-4s %7.3fs %+.3fs  vel %d", name, n.StartTime, n.Duration, n.Velocity)
}

// StageComplete shows completion message for a stage
func (r *Reporter) StageComplete(format string, args ...any) {
	fmt.Fprintf(r.out, "       %s\n", fmt.Sprintf(format, args...))
}

// Done announces successful completion
func (r *Reporter) Done(outputPath string, notes int) {
	elapsed := time.Since(r.startTime)
	fmt.Fprintf(r.out, "Done! Extracted %d notes.\n", notes)
	if outputPath != "" {
		fmt.Fprintf(r.out, "Output saved to: %s\n", outputPath)
	}
	fmt.Fprintf(r.out, "Completed in %.1f seconds\n", elapsed.Seconds())
}

// Error announces an error
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.out, "Error: %s\n", err)
}

// Warning announces a non-fatal warning
func (r *Reporter) Warning(format string, args ...any) {
	fmt.Fprintf(r.out, "Warning: %s\n", fmt.Sprintf(format, args...))
}
