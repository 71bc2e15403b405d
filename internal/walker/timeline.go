package walker

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// timeline extracts the linked page of every entry up to the sentinel and
// writes their concatenated text as one document for the timeline page.
func (w *Walker) timeline(ctx context.Context, spec *profile.WalkerSpec, page types.Locator) error {
	if w.harvester.Seen(page) {
		w.logger.Debug("timeline already harvested", "url", page)
		return nil
	}

	doc, err := w.load(ctx, page)
	if err != nil || doc == nil {
		return err
	}
	w.metrics.CatalogPages.Add(1)

	entries := doc.Find(spec.Entries)
	if entries.Length() == 0 {
		w.structureMissing(page, "timeline entries", spec.Entries)
		return nil
	}

	var texts []string
	var walkErr error
	entries.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			walkErr = err
			return false
		}
		if spec.Sentinel != "" && label(s.Text()) == spec.Sentinel {
			return false
		}

		a := s.Find(spec.EntryLink).First()
		if a.Length() == 0 && s.Is(spec.EntryLink) {
			a = s
		}
		base := doc.Url
		if base == nil {
			base = w.base
		}
		entry, ok := anchor(a, base)
		if !ok {
			return true
		}
		w.metrics.LocatorsWalked.Add(1)

		res, err := w.harvester.Harvest(ctx, entry.Locator, types.ModeTimelineEntry)
		if err != nil {
			walkErr = err
			return false
		}
		if res.Status != types.StatusDone {
			w.logger.Warn("timeline entry skipped", "label", entry.Label, "url", entry.Locator, "error", res.Err)
			return true
		}
		if t := strings.TrimSpace(res.Text); t != "" {
			texts = append(texts, t)
		}
		return true
	})
	if walkErr != nil {
		return walkErr
	}

	if len(texts) == 0 {
		w.logger.Warn("timeline produced no text", "url", page)
		return nil
	}
	res, err := w.harvester.Commit(ctx, page, strings.Join(texts, "\n"))
	if err != nil {
		return err
	}
	if res.Status == types.StatusFailed {
		w.logger.Warn("timeline document not written", "url", page, "error", res.Err)
	}
	return nil
}
