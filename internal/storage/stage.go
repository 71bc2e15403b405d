// Package storage holds the stage: the scratch directory where written
// documents wait for the next batch commit.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/IshaanNene/lorekeeper/internal/types"
)

const ext = ".txt"

// Document is one staged text file.
type Document struct {
	// Name is the filename without extension.
	Name string
	Path string
	Text string
}

// Stage writes one plain-text file per document into a directory.
type Stage struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewStage creates the stage directory if needed.
func NewStage(dir string, logger *slog.Logger) (*Stage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stage dir: %w", err)
	}
	return &Stage{
		dir:    dir,
		logger: logger.With("component", "stage"),
	}, nil
}

// Dir returns the stage directory.
func (s *Stage) Dir() string { return s.dir }

// Write stores text as <name>.txt, replacing any earlier version. The file
// is written to a temporary name and renamed, so a reader never sees a
// partial document.
func (s *Stage) Write(name, text string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", &types.StorageError{Backend: "stage", Err: fmt.Errorf("invalid document name %q", name)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name+ext)
	if err := writeAtomic(path, []byte(text)); err != nil {
		return "", &types.StorageError{Backend: "stage", Err: err}
	}
	s.logger.Debug("document staged", "name", name, "bytes", len(text))
	return path, nil
}

// Pending returns the staged documents sorted by name.
func (s *Stage) Pending() ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.list()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &types.StorageError{Backend: "stage", Err: err}
		}
		docs = append(docs, Document{Name: name, Path: path, Text: string(data)})
	}
	return docs, nil
}

// Count returns the number of staged documents.
func (s *Stage) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names, err := s.list()
	return len(names), err
}

// Clear removes exactly the named documents. Documents staged after the
// names were listed are left in place.
func (s *Stage) Clear(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		err := os.Remove(filepath.Join(s.dir, name+ext))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &types.StorageError{Backend: "stage", Err: err}
		}
	}
	s.logger.Debug("stage cleared", "documents", len(names))
	return nil
}

func (s *Stage) list() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &types.StorageError{Backend: "stage", Err: err}
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, ext))
	}
	sort.Strings(names)
	return names, nil
}

// writeAtomic writes data to a hidden temp file in the target directory,
// syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stage-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
