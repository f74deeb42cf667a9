// Package cache stores extraction results on disk, keyed by audio content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dygy/hum-grep/internal/melody"
)

const (
	resultFile  = "result.json"
	versionFile = ".version"
)

// ResultCache manages cached melody results. Entries written under a
// different version are treated as misses.
type ResultCache struct {
	dir     string
	version string
}

// CachedResult is a stored result plus bookkeeping.
type CachedResult struct {
	Result   melody.Result `json:"result"`
	Source   string        `json:"source,omitempty"`
	CacheKey string        `json:"cache_key"`
	CachedAt time.Time     `json:"cached_at"`
}

// New opens (creating if needed) a cache rooted at dir. version should change
// whenever anything that affects extraction output changes.
func New(dir, version string) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &ResultCache{dir: dir, version: version}, nil
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache dir: %w", err)
	}
	return filepath.Join(base, "hum-grep", "results"), nil
}

// Version derives a short version string from anything that shapes results.
func Version(parts ...string) string {
	return hashString(strings.Join(parts, "\x00"))[:12]
}

// KeyForFile generates a cache key from a file's content hash
func KeyForFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return "file_" + hex.EncodeToString(hash.Sum(nil))[:16], nil
}

// Get retrieves the cached result for key
func (c *ResultCache) Get(key string) (*CachedResult, bool) {
	subdir := filepath.Join(c.dir, key)

	versionData, err := os.ReadFile(filepath.Join(subdir, versionFile))
	if err != nil || strings.TrimSpace(string(versionData)) != c.version {
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(subdir, resultFile))
	if err != nil {
		return nil, false
	}

	var cached CachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

// Put stores a result under key, replacing any previous entry.
func (c *ResultCache) Put(key, source string, result melody.Result) (*CachedResult, error) {
	subdir := filepath.Join(c.dir, key)
	if err := os.MkdirAll(subdir, 0755); err != nil {
		return nil, fmt.Errorf("create cache subdir: %w", err)
	}

	cached := &CachedResult{
		Result:   result,
		Source:   source,
		CacheKey: key,
		CachedAt: time.Now(),
	}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	if err := os.WriteFile(filepath.Join(subdir, resultFile), data, 0644); err != nil {
		return nil, fmt.Errorf("write result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(subdir, versionFile), []byte(c.version+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write version: %w", err)
	}
	return cached, nil
}

// Clear removes all cached entries
func (c *ResultCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Size returns the total bytes and number of entries in the cache
func (c *ResultCache) Size() (int64, int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read cache dir: %w", err)
	}

	var total int64
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		count++
		err := filepath.Walk(filepath.Join(c.dir, entry.Name()), func(_ string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				total += info.Size()
			}
			return nil
		})
		if err != nil {
			return 0, 0, err
		}
	}
	return total, count, nil
}

// Dir returns the cache root
func (c *ResultCache) Dir() string {
	return c.dir
}

func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
