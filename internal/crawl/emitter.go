package crawl

import (
	"context"
	"log/slog"
)

// CommitFunc hands the staged documents downstream.
type CommitFunc func(ctx context.Context) error

// BatchEmitter counts completed documents and commits every size-th one.
// The commit runs synchronously; crawling resumes only after it returns.
type BatchEmitter struct {
	size   int
	count  int
	commit CommitFunc
	logger *slog.Logger
}

// NewBatchEmitter creates an emitter firing commit after every size documents.
func NewBatchEmitter(size int, commit CommitFunc, logger *slog.Logger) *BatchEmitter {
	if size < 1 {
		size = 1
	}
	return &BatchEmitter{
		size:   size,
		commit: commit,
		logger: logger.With("component", "batch_emitter"),
	}
}

// DocumentComplete records one written document. Commit errors are
// returned unchanged and halt the crawl.
func (e *BatchEmitter) DocumentComplete(ctx context.Context) error {
	e.count++
	if e.count%e.size != 0 {
		return nil
	}
	e.logger.Info("batch boundary reached", "documents", e.count, "batch_size", e.size)
	return e.commit(ctx)
}

// Count returns the documents completed so far.
func (e *BatchEmitter) Count() int { return e.count }
