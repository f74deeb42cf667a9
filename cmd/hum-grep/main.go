package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dygy/hum-grep/internal/audio"
	"github.com/dygy/hum-grep/internal/cache"
	"github.com/dygy/hum-grep/internal/exec"
	"github.com/dygy/hum-grep/internal/melody"
	"github.com/dygy/hum-grep/internal/pipeline"
	"github.com/dygy/hum-grep/internal/pitch"
	"github.com/dygy/hum-grep/internal/progress"
	"github.com/dygy/hum-grep/internal/server"
	"github.com/dygy/hum-grep/internal/strudel"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hum-grep",
	Short: "Turn hummed audio into note events",
	Long: `hum-grep listens to a hummed or sung recording and extracts the melody
as MIDI-style note events, ready to export as MIDI or Strudel code.

Pipeline: audio → frame pitch analysis → MIDI quantization → note merging`,
	Version:      version,
	SilenceUsage: true,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the melody from an audio file",
	Long: `Extract the hummed melody from an audio file and print it as JSON.

Examples:
  hum-grep extract --input hum.wav
  hum-grep extract -i hum.webm -o melody.json --midi-out melody.mid
  hum-grep extract -i hum.mp3 --strudel melody.strudel --bpm 90 --style synth`,
	RunE: runExtract,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the melody extraction API used by the browser recorder.

Example:
  hum-grep serve --port 5000 --allowed-origin http://localhost:3000`,
	RunE: runServe,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Clean up a recording (pre-emphasis, normalization, silence trim)",
	RunE:  runProcess,
}

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Render a saved melody JSON as Strudel code",
	Long: `Render notes as Strudel code. The input may be an extract result or a
bare JSON array of notes.

Example:
  hum-grep pattern -i melody.json --key G --style jazz`,
	RunE: runPattern,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the extract result cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and size",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached results",
	RunE:  runCacheClear,
}

// Flags
var (
	inputPath         string
	outputPath        string
	midiOutput        string
	strudelOutput     string
	bpm               float64
	instrument        string
	soundStyle        string
	chordKey          string
	verbose           bool
	simulateOnSilence bool
	ffmpegPath        string
	useCache          bool
	cacheDir          string

	processOutput string

	port          int
	maxUploadMB   int64
	allowedOrigin []string
)

func init() {
	rootCmd.AddCommand(extractCmd, serveCmd, processCmd, patternCmd, cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd)
	cacheCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Result cache directory (default: user cache dir)")

	extractCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input audio file (WAV, MP3, FLAC, WebM or M4A)")
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the JSON result to file (default: stdout)")
	extractCmd.Flags().StringVar(&midiOutput, "midi-out", "", "Save the melody as a MIDI file")
	extractCmd.Flags().StringVar(&strudelOutput, "strudel", "", "Save the melody as Strudel code")
	extractCmd.Flags().Float64Var(&bpm, "bpm", 120, "Tempo for MIDI and Strudel output")
	extractCmd.Flags().StringVar(&instrument, "instrument", "piano", "Strudel sound for the pattern line")
	extractCmd.Flags().StringVarP(&soundStyle, "style", "s", "piano", "Strudel sound style:\n"+styleHelp())
	extractCmd.Flags().StringVar(&chordKey, "key", "", "Add an I-V-vi-IV pad in this key (C, G or F)")
	extractCmd.Flags().BoolVar(&simulateOnSilence, "simulate-on-silence", false, "Return a placeholder scale when no melody is heard")
	extractCmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to ffmpeg (default: $HUM_GREP_FFMPEG or PATH)")
	extractCmd.Flags().BoolVar(&useCache, "cache", false, "Reuse results for audio that was already extracted")
	extractCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Result cache directory, implies --cache (default: user cache dir)")
	extractCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	extractCmd.MarkFlagRequired("input")

	serveCmd.Flags().IntVarP(&port, "port", "p", server.DefaultConfig().Port, "Port to listen on")
	serveCmd.Flags().Int64Var(&maxUploadMB, "max-upload-mb", 100, "Maximum upload size in MB")
	serveCmd.Flags().StringSliceVar(&allowedOrigin, "allowed-origin", []string{"*"}, "CORS allowed origins")
	serveCmd.Flags().BoolVar(&simulateOnSilence, "simulate-on-silence", false, "Return a placeholder scale when no melody is heard")
	serveCmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to ffmpeg (default: $HUM_GREP_FFMPEG or PATH)")
	serveCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	processCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input audio file")
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "processed_audio.wav", "Output WAV file")
	processCmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to ffmpeg (default: $HUM_GREP_FFMPEG or PATH)")
	processCmd.MarkFlagRequired("input")

	patternCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Melody JSON file (default: stdin)")
	patternCmd.Flags().Float64Var(&bpm, "bpm", 120, "Tempo")
	patternCmd.Flags().StringVar(&instrument, "instrument", "piano", "Strudel sound for the pattern line")
	patternCmd.Flags().StringVarP(&soundStyle, "style", "s", "piano", "Strudel sound style:\n"+styleHelp())
	patternCmd.Flags().StringVar(&chordKey, "key", "", "Add an I-V-vi-IV pad in this key (C, G or F)")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newOrchestrator(logger *slog.Logger) *pipeline.Orchestrator {
	cfg := pipeline.DefaultConfig()
	if simulateOnSilence {
		cfg.Policy = pipeline.PolicySimulate
	}
	return pipeline.NewOrchestrator(pitch.Shared(), cfg, logger)
}

func newDecoder(logger *slog.Logger) *audio.Decoder {
	runner := exec.NewRunner(ffmpegPath)
	if err := runner.CheckFFmpeg(); err != nil {
		logger.Warn("ffmpeg unavailable, only WAV, MP3 and FLAC can be decoded", "error", err)
		return audio.NewDecoder(nil)
	}
	return audio.NewDecoder(runner)
}

func styleHelp() string {
	var sb strings.Builder
	for _, s := range strudel.AvailableStyles() {
		fmt.Fprintf(&sb, "  %-10s %s\n", s, strudel.StyleDescription(s))
	}
	return sb.String()
}

func resolveCacheDir() (string, error) {
	if cacheDir != "" {
		return cacheDir, nil
	}
	return cache.DefaultDir()
}

// openCache returns nil when caching is off or the directory is unusable.
func openCache(logger *slog.Logger, orch *pipeline.Orchestrator) *cache.ResultCache {
	if !useCache && cacheDir == "" {
		return nil
	}
	dir, err := resolveCacheDir()
	if err != nil {
		logger.Warn("result cache disabled", "error", err)
		return nil
	}
	c, err := cache.New(dir, cache.Version(version, orch.Fingerprint()))
	if err != nil {
		logger.Warn("result cache disabled", "error", err)
		return nil
	}
	return c
}

// signalContext cancels on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runExtract(cmd *cobra.Command, args []string) error {
	style, err := strudel.ParseStyle(soundStyle)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger()
	orch := newOrchestrator(logger)
	rep := progress.NewReporter(os.Stderr, verbose)

	result, err := orch.Execute(ctx, newDecoder(logger), rep, pipeline.RunConfig{
		Cache:             openCache(logger, orch),
		InputPath:         inputPath,
		OutputPath:        outputPath,
		MIDIOutputPath:    midiOutput,
		StrudelOutputPath: strudelOutput,
		BPM:               bpm,
		Instrument:        instrument,
		Style:             string(style),
		ChordKey:          chordKey,
	})
	if err != nil {
		rep.Error(err)
		return err
	}

	if outputPath == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}

	if err := pipeline.Err(result); err != nil {
		return err
	}
	rep.Done(outputPath, len(result.Notes))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg := server.DefaultConfig()
	cfg.Port = port
	cfg.MaxUploadSize = maxUploadMB << 20
	cfg.AllowedOrigins = allowedOrigin

	srv := server.New(cfg, newDecoder(logger), newOrchestrator(logger), logger)
	return srv.Run()
}

func runProcess(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := signalContext()
	defer cancel()

	buf, err := newDecoder(newLogger()).DecodeFile(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	processed, err := audio.Preprocess(buf)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}

	f, err := os.Create(processOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := audio.EncodeWAV(f, processed); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Processed %.2f s → %.2f s, saved to %s\n",
		buf.Duration(), processed.Duration(), processOutput)
	return nil
}

func runPattern(cmd *cobra.Command, args []string) error {
	style, err := strudel.ParseStyle(soundStyle)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	notes, err := readNotes(json.NewDecoder(in))
	if err != nil {
		return err
	}

	gen := strudel.NewGeneratorWithStyle(16, style)
	gen.SetChordKey(chordKey)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "// %s\n", strudel.Pattern(notes, bpm, instrument))
	fmt.Fprint(out, gen.Generate(notes, bpm))
	return nil
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	dir, err := resolveCacheDir()
	if err != nil {
		return err
	}
	c, err := cache.New(dir, version)
	if err != nil {
		return err
	}
	size, count, err := c.Size()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cache: %s\nEntries: %d\nSize: %.1f KB\n", c.Dir(), count, float64(size)/1024)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	dir, err := resolveCacheDir()
	if err != nil {
		return err
	}
	c, err := cache.New(dir, version)
	if err != nil {
		return err
	}
	_, count, err := c.Size()
	if err != nil {
		return err
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached results from %s\n", count, c.Dir())
	return nil
}

// readNotes accepts either a Result object or a bare notes array.
func readNotes(dec *json.Decoder) ([]melody.Note, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse melody: %w", err)
	}

	var notes []melody.Note
	if err := json.Unmarshal(raw, &notes); err == nil {
		return notes, nil
	}

	var result melody.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse melody: %w", err)
	}
	return result.Notes, nil
}
