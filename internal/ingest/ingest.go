// Package ingest hands committed batches of staged documents to the
// downstream retrieval pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/lorekeeper/internal/config"
)

// Document is one text document in a batch. Name is its stable identifier:
// ingesting the same name twice replaces the earlier copy.
type Document struct {
	Name string
	Text string
}

// Batch is the unit handed to an Ingester.
type Batch struct {
	ID        string
	CreatedAt time.Time
	Documents []Document
}

// NewBatch assigns a fresh batch ID to docs.
func NewBatch(docs []Document) Batch {
	return Batch{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Documents: docs,
	}
}

// Ingester consumes batches. Ingest returns only once the whole batch is
// durable downstream.
type Ingester interface {
	// Ingest stores every document of the batch.
	Ingest(ctx context.Context, batch Batch) error

	// Close releases any resources held by the ingester.
	Close(ctx context.Context) error

	// Name returns the ingester identifier.
	Name() string
}

// New builds the ingesters listed in cfg.Types. Several types fan out
// through a Multi.
func New(ctx context.Context, cfg *config.IngestConfig, logger *slog.Logger) (Ingester, error) {
	var ingesters []Ingester
	closeAll := func() {
		for _, in := range ingesters {
			_ = in.Close(ctx)
		}
	}

	for _, typ := range cfg.Types {
		var (
			in  Ingester
			err error
		)
		switch typ {
		case "archive":
			in, err = NewArchive(cfg.ArchiveDir, logger)
		case "mongo":
			in, err = NewMongo(ctx, cfg.Mongo, logger)
		case "elasticsearch":
			in, err = NewElasticsearch(ctx, cfg.Elasticsearch, logger)
		default:
			err = fmt.Errorf("unsupported ingest type: %s", typ)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("ingest %s: %w", typ, err)
		}
		ingesters = append(ingesters, in)
	}

	switch len(ingesters) {
	case 0:
		return nil, errors.New("no ingest types configured")
	case 1:
		return ingesters[0], nil
	default:
		return NewMulti(ingesters, logger), nil
	}
}

// Multi fans one batch out to several ingesters.
type Multi struct {
	ingesters []Ingester
	logger    *slog.Logger
}

// NewMulti creates an ingester that writes to every one of ingesters.
func NewMulti(ingesters []Ingester, logger *slog.Logger) *Multi {
	return &Multi{
		ingesters: ingesters,
		logger:    logger.With("component", "multi_ingest"),
	}
}

func (m *Multi) Name() string { return "multi" }

// Ingest stops at the first failing ingester. The batch stays staged and is
// replayed by the next commit; every ingester replaces by name, so the
// replay does not duplicate documents.
func (m *Multi) Ingest(ctx context.Context, batch Batch) error {
	for _, in := range m.ingesters {
		if err := in.Ingest(ctx, batch); err != nil {
			m.logger.Error("ingester failed", "ingester", in.Name(), "batch", batch.ID, "error", err)
			return err
		}
	}
	return nil
}

func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, in := range m.ingesters {
		if err := in.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in.Name(), err))
		}
	}
	return errors.Join(errs...)
}
