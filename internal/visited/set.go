// Package visited keeps the durable record of locators that have been
// harvested, so repeated and interrupted runs never fetch a document twice.
package visited

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Backend persists the full visited set. Save overwrites; it never appends.
type Backend interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, keys []string) error
	Close(ctx context.Context) error
	Name() string
}

// Set is the in-memory visited set backed by a Backend.
// Membership is keyed by types.Locator.Key.
type Set struct {
	mu         sync.RWMutex
	seen       map[string]struct{}
	backend    Backend
	flushEvery int
	pending    int
	dirty      bool
	logger     *slog.Logger
}

// Open loads the set from backend. A missing or unreadable state falls
// back to an empty set; the failure is logged and never returned.
func Open(ctx context.Context, backend Backend, flushEvery int, logger *slog.Logger) *Set {
	if flushEvery < 1 {
		flushEvery = 1
	}
	s := &Set{
		seen:       make(map[string]struct{}),
		backend:    backend,
		flushEvery: flushEvery,
		logger:     logger.With("component", "visited", "backend", backend.Name()),
	}

	keys, err := backend.Load(ctx)
	if err != nil {
		s.logger.Error("visited state unreadable, starting empty", "error", err)
		return s
	}
	for _, k := range keys {
		s.seen[k] = struct{}{}
	}
	s.logger.Info("visited state loaded", "count", len(s.seen))
	return s
}

// Contains reports whether loc has been harvested.
func (s *Set) Contains(loc types.Locator) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[loc.Key()]
	return ok
}

// MarkVisited records loc. It is idempotent and returns false when loc was
// already present. Every flushEvery insertions the set is flushed; a failed
// flush is logged and retried flushEvery insertions later.
func (s *Set) MarkVisited(ctx context.Context, loc types.Locator) bool {
	key := loc.Key()

	s.mu.Lock()
	if _, ok := s.seen[key]; ok {
		s.mu.Unlock()
		return false
	}
	s.seen[key] = struct{}{}
	s.dirty = true
	s.pending++
	due := s.pending >= s.flushEvery
	s.mu.Unlock()

	if due {
		if err := s.Flush(ctx); err != nil {
			s.logger.Error("periodic flush failed", "error", err)
			s.mu.Lock()
			s.pending = 0
			s.mu.Unlock()
		}
	}
	return true
}

// Flush writes the full current set to the backend. It does nothing when
// the set is unchanged since it was loaded or last flushed, so a set that
// failed to load never overwrites the stored state on its own.
func (s *Set) Flush(ctx context.Context) error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if !dirty {
		return nil
	}

	keys := s.Keys()
	if err := s.backend.Save(ctx, keys); err != nil {
		return &types.StorageError{Backend: s.backend.Name(), Err: err}
	}

	s.mu.Lock()
	s.pending = 0
	if len(s.seen) == len(keys) {
		s.dirty = false
	}
	s.mu.Unlock()

	s.logger.Debug("visited state flushed", "count", len(keys))
	return nil
}

// Keys returns the visited keys in sorted order.
func (s *Set) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.seen))
	for k := range s.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of visited locators.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Reset forgets every locator and persists the empty set.
func (s *Set) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.pending = 0
	s.dirty = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

// Release closes the backend without flushing. Read-only callers use it.
func (s *Set) Release(ctx context.Context) error {
	return s.backend.Close(ctx)
}

// Close flushes pending changes and releases the backend.
func (s *Set) Close(ctx context.Context) error {
	flushErr := s.Flush(ctx)
	if err := s.backend.Close(ctx); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}
