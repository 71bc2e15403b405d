package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/lorekeeper/internal/extract"
	"github.com/IshaanNene/lorekeeper/internal/fetcher"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/storage"
	"github.com/IshaanNene/lorekeeper/internal/types"
	"github.com/IshaanNene/lorekeeper/internal/visited"
)

// maxHops bounds how far chapter cross-references are followed.
const maxHops = 1

// Harvester fetches, extracts and writes single documents. It carries the
// visited set, stage and emitter explicitly; nothing is shared through
// package state.
type Harvester struct {
	fetcher   fetcher.Fetcher
	extractor *extract.Extractor
	visited   *visited.Set
	stage     *storage.Stage
	emitter   *BatchEmitter
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewHarvester wires a Harvester. f should already apply the retry policy.
func NewHarvester(
	f fetcher.Fetcher,
	extractor *extract.Extractor,
	set *visited.Set,
	stage *storage.Stage,
	emitter *BatchEmitter,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Harvester {
	return &Harvester{
		fetcher:   f,
		extractor: extractor,
		visited:   set,
		stage:     stage,
		emitter:   emitter,
		metrics:   metrics,
		logger:    logger.With("component", "harvester"),
	}
}

// Seen reports whether loc is already harvested.
func (h *Harvester) Seen(loc types.Locator) bool {
	return h.visited.Contains(loc)
}

// Load fetches and parses a catalog page with the same retry policy as documents.
func (h *Harvester) Load(ctx context.Context, loc types.Locator) (*goquery.Document, error) {
	page, err := h.fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	return page.Document()
}

// Harvest processes one document locator.
func (h *Harvester) Harvest(ctx context.Context, loc types.Locator, mode types.ExtractionMode) (types.Result, error) {
	return h.harvest(ctx, loc, mode, 0)
}

func (h *Harvester) harvest(ctx context.Context, loc types.Locator, mode types.ExtractionMode, hop int) (types.Result, error) {
	if mode.Writes() && h.visited.Contains(loc) {
		h.metrics.DocumentsSkipped.Add(1)
		h.logger.Debug("already visited", "url", loc)
		return types.Result{Locator: loc, Status: types.StatusSkipped}, nil
	}

	page, err := h.fetcher.Fetch(ctx, loc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Result{}, ctxErr
		}
		return h.failed(loc, "fetch failed", err), nil
	}

	text, links, err := h.extract(page, mode)
	if err != nil {
		return h.failed(loc, "extraction failed", err), nil
	}

	if mode == types.ModeNovelChapter && hop < maxHops {
		for _, link := range links {
			if err := ctx.Err(); err != nil {
				return types.Result{}, err
			}
			res, err := h.harvest(ctx, link, types.ModeStandard, hop+1)
			if err != nil {
				return types.Result{}, err
			}
			if res.Status == types.StatusFailed {
				h.logger.Debug("chapter reference skipped", "chapter", loc, "url", link)
			}
		}
	}

	if !mode.Writes() {
		return types.Result{Locator: loc, Status: types.StatusDone, Text: text.Body}, nil
	}
	return h.Commit(ctx, loc, text.Body)
}

// extract runs the extractor, turning a panic into an error so one bad page
// cannot stop the crawl.
func (h *Harvester) extract(page *types.Page, mode types.ExtractionMode) (text *types.ExtractedText, links []types.Locator, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("extractor panic", "url", page.Locator, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return h.extractor.Extract(page, mode)
}

// Commit writes text under loc's filename, then marks loc visited and
// counts it. The mark and the count only happen after the write succeeded.
func (h *Harvester) Commit(ctx context.Context, loc types.Locator, text string) (types.Result, error) {
	if _, err := h.stage.Write(loc.Filename(), text); err != nil {
		return h.failed(loc, "write failed", err), nil
	}

	h.visited.MarkVisited(ctx, loc)
	h.metrics.DocumentsWritten.Add(1)
	h.logger.Info("document written", "url", loc, "name", loc.Filename(), "bytes", len(text))

	if err := h.emitter.DocumentComplete(ctx); err != nil {
		return types.Result{}, err
	}
	return types.Result{Locator: loc, Status: types.StatusDone, Text: text}, nil
}

func (h *Harvester) failed(loc types.Locator, msg string, err error) types.Result {
	h.metrics.DocumentsFailed.Add(1)
	level := slog.LevelWarn
	var se *types.StructuralError
	if errors.As(err, &se) {
		h.metrics.StructureMiss.Add(1)
		level = slog.LevelInfo
	}
	h.logger.Log(context.Background(), level, msg, "url", loc, "error", err)
	return types.Result{Locator: loc, Status: types.StatusFailed, Err: err}
}
