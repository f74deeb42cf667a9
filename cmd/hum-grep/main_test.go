package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/hum-grep/internal/cache"
	"github.com/dygy/hum-grep/internal/melody"
)

func TestReadNotes(t *testing.T) {
	cases := map[string]string{
		"Array":  `[{"pitch":60,"start_time":0,"duration":0.5,"velocity":80}]`,
		"Result": `{"success":true,"message":"extracted 1 notes","notes":[{"pitch":60,"start_time":0,"duration":0.5,"velocity":80}],"total_duration":0.5}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			notes, err := readNotes(json.NewDecoder(strings.NewReader(input)))
			require.NoError(t, err)
			require.Len(t, notes, 1)
			assert.Equal(t, 60, notes[0].Pitch)
		})
	}

	_, err := readNotes(json.NewDecoder(strings.NewReader(`"nope"`)))
	assert.Error(t, err)
}

func TestPatternCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(`[{"pitch":62,"start_time":0,"duration":0.5,"velocity":80}]`))
	rootCmd.SetArgs([]string{"pattern", "--bpm", "120"})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), `// sound("piano").note("D4_")`)
	assert.Contains(t, out.String(), "setcps(120/60/4)")
}

func TestOpenCache(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := newOrchestrator(logger)
	t.Cleanup(func() { useCache, cacheDir = false, "" })

	useCache, cacheDir = false, ""
	assert.Nil(t, openCache(logger, orch))

	cacheDir = t.TempDir()
	c := openCache(logger, orch)
	require.NotNil(t, c)
	assert.Equal(t, cacheDir, c.Dir())
}

func TestPatternRejectsUnknownStyle(t *testing.T) {
	t.Cleanup(func() { soundStyle = "piano" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(`[]`))
	rootCmd.SetArgs([]string{"pattern", "--style", "polka"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown style "polka"`)
}

func TestCacheCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	t.Cleanup(func() { cacheDir = "" })

	c, err := cache.New(dir, "v1")
	require.NoError(t, err)
	_, err = c.Put("file_abc", "hum.wav", melody.Result{Success: true, Notes: []melody.Note{}})
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"cache", "info", "--cache-dir", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Entries: 1")

	out.Reset()
	rootCmd.SetArgs([]string{"cache", "clear", "--cache-dir", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Removed 1 cached results")
	assert.NoDirExists(t, dir)
}

func TestStyleHelpListsEveryStyle(t *testing.T) {
	help := styleHelp()
	for _, name := range []string{"piano", "synth", "orchestral", "electronic", "jazz", "lofi"} {
		assert.Contains(t, help, name)
	}
}
