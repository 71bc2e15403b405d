package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Archive copies each batch into a corpus directory, one <name>.txt per
// document. It is the default sink for a local retrieval pipeline.
type Archive struct {
	dir    string
	count  int
	logger *slog.Logger
}

// NewArchive creates the corpus directory if needed.
func NewArchive(dir string, logger *slog.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archive{
		dir:    dir,
		logger: logger.With("component", "archive_ingest"),
	}, nil
}

func (a *Archive) Name() string { return "archive" }

func (a *Archive) Ingest(ctx context.Context, batch Batch) error {
	for _, doc := range batch.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(a.dir, doc.Name+".txt")
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, []byte(doc.Text), 0o644); err != nil {
			return fmt.Errorf("archive %s: %w", doc.Name, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("archive %s: %w", doc.Name, err)
		}
	}
	a.count += len(batch.Documents)
	a.logger.Info("batch archived", "batch", batch.ID, "documents", len(batch.Documents), "total", a.count)
	return nil
}

func (a *Archive) Close(context.Context) error { return nil }
