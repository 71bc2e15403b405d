package crawl

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/lorekeeper/internal/ingest"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/storage"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Committer moves staged documents downstream in two phases: the listed
// documents are ingested, then exactly those files are cleared.
type Committer struct {
	stage    *storage.Stage
	ingester ingest.Ingester
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewCommitter creates a Committer draining stage into ingester.
func NewCommitter(stage *storage.Stage, ingester ingest.Ingester, metrics *observability.Metrics, logger *slog.Logger) *Committer {
	return &Committer{
		stage:    stage,
		ingester: ingester,
		metrics:  metrics,
		logger:   logger.With("component", "committer"),
	}
}

// Commit ingests everything currently staged and returns how many
// documents were committed. On an ingest error nothing is cleared.
func (c *Committer) Commit(ctx context.Context) (int, error) {
	staged, err := c.stage.Pending()
	if err != nil {
		return 0, err
	}
	if len(staged) == 0 {
		return 0, nil
	}

	docs := make([]ingest.Document, len(staged))
	names := make([]string, len(staged))
	for i, d := range staged {
		docs[i] = ingest.Document{Name: d.Name, Text: d.Text}
		names[i] = d.Name
	}
	batch := ingest.NewBatch(docs)

	if err := c.ingester.Ingest(ctx, batch); err != nil {
		return 0, &types.IngestError{Backend: c.ingester.Name(), BatchID: batch.ID, Err: err}
	}
	if err := c.stage.Clear(names); err != nil {
		return 0, err
	}

	c.metrics.BatchesCommitted.Add(1)
	c.metrics.DocumentsIngested.Add(int64(len(docs)))
	c.logger.Info("batch committed", "batch", batch.ID, "documents", len(docs), "ingester", c.ingester.Name())
	return len(docs), nil
}

// Run adapts Commit to a CommitFunc.
func (c *Committer) Run(ctx context.Context) error {
	_, err := c.Commit(ctx)
	return err
}
