package visited

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend stores the set as a JSON array of locator keys.
type FileBackend struct {
	path string
}

// NewFileBackend creates a FileBackend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Name() string { return "file" }

// Path returns the state file location.
func (b *FileBackend) Path() string { return b.path }

// Load reads the state file. A missing file is an empty set.
func (b *FileBackend) Load(_ context.Context) ([]string, error) {
	f, err := os.Open(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open visited state: %w", err)
	}
	defer f.Close()

	var keys []string
	if err := json.NewDecoder(f).Decode(&keys); err != nil {
		return nil, fmt.Errorf("decode visited state: %w", err)
	}
	return keys, nil
}

// Save writes keys to a temp file, then renames it over the state file.
func (b *FileBackend) Save(_ context.Context, keys []string) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".visited-*.tmp")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	tmpPath := f.Name()

	if keys == nil {
		keys = []string{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(keys); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode visited state: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync visited state: %w", err)
	}
	f.Close()

	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename visited state: %w", err)
	}
	return nil
}

func (b *FileBackend) Close(context.Context) error { return nil }
