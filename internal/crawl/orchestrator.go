// Package crawl sequences catalog walkers over the site and turns each
// discovered locator into a staged document, committing batches downstream.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/IshaanNene/lorekeeper/internal/extract"
	"github.com/IshaanNene/lorekeeper/internal/fetcher"
	"github.com/IshaanNene/lorekeeper/internal/ingest"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/storage"
	"github.com/IshaanNene/lorekeeper/internal/types"
	"github.com/IshaanNene/lorekeeper/internal/visited"
	"github.com/IshaanNene/lorekeeper/internal/walker"
)

// Report summarizes one run.
type Report struct {
	Categories []string
	// Documents is the number of documents written during the run.
	Documents int
	// Visited is the size of the visited set after the run.
	Visited int
	// Committed is the number of documents handed off by the final commit.
	Committed int
	Duration  time.Duration
}

// Deps are the collaborators an Orchestrator is assembled from.
type Deps struct {
	Profile        *profile.Profile
	BaseURL        *url.URL
	Fetcher        fetcher.Fetcher
	Visited        *visited.Set
	Stage          *storage.Stage
	Ingester       ingest.Ingester
	BatchSize      int
	CommitOnFinish bool
	Metrics        *observability.Metrics
}

// Orchestrator runs the walkers of one or more categories.
type Orchestrator struct {
	profile        *profile.Profile
	fetcher        fetcher.Fetcher
	visited        *visited.Set
	stage          *storage.Stage
	ingester       ingest.Ingester
	emitter        *BatchEmitter
	committer      *Committer
	harvester      *Harvester
	walker         *walker.Walker
	commitOnFinish bool
	logger         *slog.Logger
}

// Assemble wires an Orchestrator from already-opened collaborators.
func Assemble(d Deps, logger *slog.Logger) *Orchestrator {
	committer := NewCommitter(d.Stage, d.Ingester, d.Metrics, logger)
	emitter := NewBatchEmitter(d.BatchSize, committer.Run, logger)
	extractor := extract.New(d.Profile.Layout, logger)
	harvester := NewHarvester(d.Fetcher, extractor, d.Visited, d.Stage, emitter, d.Metrics, logger)

	return &Orchestrator{
		profile:        d.Profile,
		fetcher:        d.Fetcher,
		visited:        d.Visited,
		stage:          d.Stage,
		ingester:       d.Ingester,
		emitter:        emitter,
		committer:      committer,
		harvester:      harvester,
		walker:         walker.New(harvester, harvester, d.BaseURL, d.Metrics, logger),
		commitOnFinish: d.CommitOnFinish,
		logger:         logger.With("component", "orchestrator"),
	}
}

// Run harvests one category.
func (o *Orchestrator) Run(ctx context.Context, category string) (Report, error) {
	if _, err := o.profile.Walkers(category); err != nil {
		return Report{}, err
	}
	return o.run(ctx, []string{category})
}

// RunAll harvests every category in the fixed order. Categories the
// profile does not describe are skipped.
func (o *Orchestrator) RunAll(ctx context.Context) (Report, error) {
	var categories []string
	for _, c := range profile.Categories {
		if _, err := o.profile.Walkers(c); err != nil {
			o.logger.Warn("category not in profile, skipping", "category", c)
			continue
		}
		categories = append(categories, c)
	}
	return o.run(ctx, categories)
}

func (o *Orchestrator) run(ctx context.Context, categories []string) (report Report, err error) {
	start := time.Now()
	before := o.emitter.Count()
	report.Categories = categories

	// The visited set is flushed however the run ends, including on
	// cancellation and ingest failures.
	defer func() {
		if flushErr := o.visited.Flush(context.WithoutCancel(ctx)); flushErr != nil {
			o.logger.Error("final visited flush failed", "error", flushErr)
			err = errors.Join(err, flushErr)
		}
		report.Documents = o.emitter.Count() - before
		report.Visited = o.visited.Len()
		report.Duration = time.Since(start)
	}()

	for _, category := range categories {
		specs, _ := o.profile.Walkers(category)
		o.logger.Info("category started", "category", category, "walkers", len(specs))

		for i := range specs {
			if err := o.walker.Walk(ctx, &specs[i]); err != nil {
				return report, fmt.Errorf("category %s: %w", category, err)
			}
		}
		o.logger.Info("category finished", "category", category, "documents", o.emitter.Count()-before)
	}

	if o.commitOnFinish {
		n, err := o.committer.Commit(ctx)
		if err != nil {
			return report, err
		}
		report.Committed = n
	}
	return report, nil
}

// Commit hands everything currently staged downstream.
func (o *Orchestrator) Commit(ctx context.Context) (int, error) {
	return o.committer.Commit(ctx)
}

// Reset clears the visited set so the next run harvests everything again.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.logger.Warn("visited set reset", "previous", o.visited.Len())
	return o.visited.Reset(ctx)
}

// Harvester exposes the document harvester.
func (o *Orchestrator) Harvester() *Harvester { return o.harvester }

// Close flushes the visited set and releases the fetcher and ingester.
func (o *Orchestrator) Close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if err := o.visited.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if o.fetcher != nil {
		if err := o.fetcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fetcher: %w", err))
		}
	}
	if o.ingester != nil {
		if err := o.ingester.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close ingester: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsFatal reports whether err must stop the process rather than a single unit.
func IsFatal(err error) bool {
	var ie *types.IngestError
	return errors.As(err, &ie) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
