package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Workspace manages temporary files for a single request
type Workspace struct {
	ID        string
	Dir       string
	CreatedAt time.Time
}

// Create creates a new isolated workspace in the system temp directory
func Create() (*Workspace, error) {
	id := uuid.New().String()
	dir, err := os.MkdirTemp("", "hum-grep-"+id+"-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{
		ID:        id,
		Dir:       dir,
		CreatedAt: time.Now(),
	}, nil
}

// Path helpers for workspace files
func (w *Workspace) Converted() string { return filepath.Join(w.Dir, "converted.wav") }
func (w *Workspace) Processed() string { return filepath.Join(w.Dir, "processed.wav") }

// Cleanup removes the workspace directory and all contents
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.Dir)
}

// WriteFile stores data under name inside the workspace
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	dst := filepath.Join(w.Dir, name)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return dst, nil
}
