// Package walker enumerates document locators from the catalog shapes
// described by an extraction profile and hands each one to a Harvester.
package walker

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Entry is one (label, locator) pair found on a catalog page.
type Entry struct {
	Label   string
	Locator types.Locator
}

// Harvester processes the locators a walker discovers.
type Harvester interface {
	// Harvest fetches, extracts and, unless mode is ModeTimelineEntry,
	// writes the document at loc. Per-locator failures are reported in the
	// Result; a non-nil error aborts the walk.
	Harvest(ctx context.Context, loc types.Locator, mode types.ExtractionMode) (types.Result, error)

	// Commit writes text as the document for loc, marks it visited and counts it.
	Commit(ctx context.Context, loc types.Locator, text string) (types.Result, error)

	// Seen reports whether loc is already in the visited set.
	Seen(loc types.Locator) bool
}

// PageLoader fetches and parses a catalog page.
type PageLoader interface {
	Load(ctx context.Context, loc types.Locator) (*goquery.Document, error)
}

// Walker runs walker specs against the site.
type Walker struct {
	loader    PageLoader
	harvester Harvester
	base      *url.URL
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Walker resolving relative catalog locators against base.
func New(loader PageLoader, harvester Harvester, base *url.URL, metrics *observability.Metrics, logger *slog.Logger) *Walker {
	return &Walker{
		loader:    loader,
		harvester: harvester,
		base:      base,
		metrics:   metrics,
		logger:    logger.With("component", "walker"),
	}
}

// Walk runs one top-level spec. Only context cancellation and fatal
// harvester errors are returned; missing structure and failed pages are
// logged and skipped.
func (w *Walker) Walk(ctx context.Context, spec *profile.WalkerSpec) error {
	page, err := types.Locator(spec.Page).Resolve(w.base)
	if err != nil {
		w.logger.Error("invalid catalog page", "page", spec.Page, "error", err)
		return nil
	}
	return w.walk(ctx, spec, page)
}

func (w *Walker) walk(ctx context.Context, spec *profile.WalkerSpec, page types.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch spec.Kind {
	case profile.KindNamedGroup:
		return w.namedGroups(ctx, spec, page)
	case profile.KindAlphabetical:
		return w.alphabetical(ctx, spec, page)
	case profile.KindLinkList:
		return w.linkList(ctx, spec, page)
	case profile.KindTimeline:
		return w.timeline(ctx, spec, page)
	default:
		w.logger.Error("unknown walker kind", "kind", spec.Kind, "page", page)
		return nil
	}
}

// visit hands entries to the nested spec, or to the harvester when there is none.
func (w *Walker) visit(ctx context.Context, spec *profile.WalkerSpec, entries []Entry) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.metrics.LocatorsWalked.Add(1)

		if spec.Then != nil {
			if err := w.walk(ctx, spec.Then, e.Locator); err != nil {
				return err
			}
			continue
		}

		res, err := w.harvester.Harvest(ctx, e.Locator, spec.Mode)
		if err != nil {
			return err
		}
		if res.Status == types.StatusFailed {
			w.logger.Warn("document skipped", "label", e.Label, "url", e.Locator, "error", res.Err)
		}
	}
	return nil
}

// load fetches a catalog page. A failed page is logged and reported as
// nil so the caller skips it; only cancellation is returned as an error.
func (w *Walker) load(ctx context.Context, loc types.Locator) (*goquery.Document, error) {
	doc, err := w.loader.Load(ctx, loc)
	if err == nil {
		return doc, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	w.logger.Warn("catalog page skipped", "url", loc, "error", err)
	return nil, nil
}

// structureMissing logs a missing heading, list or region.
func (w *Walker) structureMissing(page types.Locator, what, selector string) {
	w.metrics.StructureMiss.Add(1)
	w.logger.Warn("catalog structure missing, skipping",
		"url", page,
		"what", what,
		"error", types.Missing(string(page), selector),
	)
}

// links collects the anchors matching selector inside sel, resolved
// against the page, in document order without duplicates.
func (w *Walker) links(doc *goquery.Document, sel *goquery.Selection, selector string) []Entry {
	base := doc.Url
	if base == nil {
		base = w.base
	}

	seen := make(map[string]bool)
	var entries []Entry
	sel.Find(selector).Each(func(_ int, a *goquery.Selection) {
		if e, ok := anchor(a, base); ok && !seen[e.Locator.Key()] {
			seen[e.Locator.Key()] = true
			entries = append(entries, e)
		}
	})
	return entries
}

// anchor turns an <a> element into an Entry. Same-page anchors and
// non-HTTP links are rejected.
func anchor(a *goquery.Selection, base *url.URL) (Entry, bool) {
	href := strings.TrimSpace(a.AttrOr("href", ""))
	if href == "" || strings.HasPrefix(href, "#") {
		return Entry{}, false
	}
	loc, err := types.Locator(href).Resolve(base)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Label: label(a.Text()), Locator: loc}, true
}

func label(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// slice applies offset and limit. A zero limit keeps every entry.
func slice(entries []Entry, offset, limit int) []Entry {
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

const headings = "h1, h2, h3, h4, h5, h6"

// siblingList returns the first sibling after heading matching selector,
// stopping at the next heading so a group never borrows its neighbour's list.
func siblingList(heading *goquery.Selection, selector string) *goquery.Selection {
	return heading.NextUntil(headings).Filter(selector).First()
}
