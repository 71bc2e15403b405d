package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/IshaanNene/lorekeeper/internal/config"
	"github.com/IshaanNene/lorekeeper/internal/fetcher"
	"github.com/IshaanNene/lorekeeper/internal/ingest"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/storage"
	"github.com/IshaanNene/lorekeeper/internal/visited"
)

// stateCollection holds the visited set when it lives in MongoDB.
const stateCollection = "crawl_state"

// New opens every collaborator described by cfg and assembles an Orchestrator.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Orchestrator, error) {
	prof, err := profile.Load(cfg.Site.ProfilePath)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.Site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("site.base_url: %w", err)
	}

	stage, err := storage.NewStage(cfg.Storage.StageDir, logger)
	if err != nil {
		return nil, err
	}

	set, err := OpenVisited(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ingester, err := ingest.New(ctx, &cfg.Ingest, logger)
	if err != nil {
		_ = set.Close(ctx)
		return nil, err
	}

	f, err := fetcher.New(ctx, cfg, metrics, logger)
	if err != nil {
		_ = set.Close(ctx)
		_ = ingester.Close(ctx)
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	logger.Info("crawler assembled",
		"profile", prof.Name,
		"base_url", base.String(),
		"fetcher", f.Type(),
		"visited", set.Len(),
		"ingester", ingester.Name(),
		"batch_size", cfg.Ingest.BatchSize,
	)

	return Assemble(Deps{
		Profile:        prof,
		BaseURL:        base,
		Fetcher:        f,
		Visited:        set,
		Stage:          stage,
		Ingester:       ingester,
		BatchSize:      cfg.Ingest.BatchSize,
		CommitOnFinish: cfg.Ingest.CommitOnFinish,
		Metrics:        metrics,
	}, logger), nil
}

// OpenVisited opens the configured visited-set backend and loads the set.
func OpenVisited(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*visited.Set, error) {
	var backend visited.Backend
	switch cfg.Visited.Backend {
	case "file":
		backend = visited.NewFileBackend(cfg.Visited.Path)
	case "mongo":
		b, err := visited.NewMongoBackend(ctx,
			cfg.Ingest.Mongo.URI,
			cfg.Ingest.Mongo.Database,
			stateCollection,
			cfg.Visited.Key,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("visited backend: %w", err)
		}
		backend = b
	default:
		return nil, fmt.Errorf("unsupported visited backend: %s", cfg.Visited.Backend)
	}
	return visited.Open(ctx, backend, cfg.Visited.FlushEvery, logger), nil
}
