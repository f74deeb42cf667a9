package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/hum-grep/internal/melody"
)

var sample = melody.Result{
	Success:       true,
	Message:       "extracted 1 notes",
	Notes:         []melody.Note{{Pitch: 69, StartTime: 0, Duration: 1.02, Velocity: 80}},
	TotalDuration: 1.02,
}

func TestPutGet(t *testing.T) {
	c, err := New(t.TempDir(), Version("a"))
	require.NoError(t, err)

	_, ok := c.Get("file_missing")
	assert.False(t, ok)

	_, err = c.Put("file_abc", "hum.wav", sample)
	require.NoError(t, err)

	got, ok := c.Get("file_abc")
	require.True(t, ok)
	assert.Equal(t, sample, got.Result)
	assert.Equal(t, "hum.wav", got.Source)
	assert.Equal(t, "file_abc", got.CacheKey)
}

func TestVersionMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	old, err := New(dir, Version("threshold=0.1"))
	require.NoError(t, err)
	_, err = old.Put("file_abc", "", sample)
	require.NoError(t, err)

	current, err := New(dir, Version("threshold=0.2"))
	require.NoError(t, err)

	_, ok := current.Get("file_abc")
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hum.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0644))

	key, err := KeyForFile(path)
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("RIFF....WAVE"))
	assert.Equal(t, "file_"+hex.EncodeToString(sum[:])[:16], key)

	other := filepath.Join(t.TempDir(), "other.wav")
	require.NoError(t, os.WriteFile(other, []byte("other"), 0644))
	otherKey, err := KeyForFile(other)
	require.NoError(t, err)
	assert.NotEqual(t, key, otherKey)

	_, err = KeyForFile(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Len(t, Version("x"), 12)
	assert.Equal(t, Version("a", "b"), Version("a", "b"))
	assert.NotEqual(t, Version("ab"), Version("a", "b"))
}

func TestSizeAndClear(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "results"), "v1")
	require.NoError(t, err)

	_, err = c.Put("file_a", "", sample)
	require.NoError(t, err)
	_, err = c.Put("file_b", "", sample)
	require.NoError(t, err)

	size, count, err := c.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Positive(t, size)

	require.NoError(t, c.Clear())
	_, count, err = c.Size()
	require.NoError(t, err)
	assert.Zero(t, count)
}
