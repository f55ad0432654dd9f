package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchive stores snapshots in a local directory. Used for development
// and when no Azure storage account is configured.
type LocalArchive struct {
	dir string
}

var _ Interface = (*LocalArchive)(nil)

// NewLocalArchive creates the directory if needed.
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

// Store writes a snapshot file.
func (l *LocalArchive) Store(filename string, data []byte) error {
	return os.WriteFile(filepath.Join(l.dir, filename), data, 0o644)
}

// Retrieve reads a snapshot file.
func (l *LocalArchive) Retrieve(filename string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.dir, filename))
}

// List returns snapshot filenames matching prefix.
func (l *LocalArchive) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if prefix == "" || strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Delete removes a snapshot file.
func (l *LocalArchive) Delete(filename string) error {
	return os.Remove(filepath.Join(l.dir, filename))
}
