package walker

import (
	"context"
	"strings"

	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Letters is the fixed order listing pages are requested in.
const Letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// alphabetical walks a catalog root: its heading lists the category links,
// and each category has one listing page per letter.
func (w *Walker) alphabetical(ctx context.Context, spec *profile.WalkerSpec, page types.Locator) error {
	doc, err := w.load(ctx, page)
	if err != nil || doc == nil {
		return err
	}
	w.metrics.CatalogPages.Add(1)

	heading, err := spec.Heading.Find(doc, spec.Heading.Label)
	if err != nil {
		w.logger.Error("heading matcher failed", "url", page, "error", err)
		return nil
	}
	if heading.Length() == 0 {
		w.structureMissing(page, "heading "+spec.Heading.Label, spec.Heading.Selector+spec.Heading.XPath)
		return nil
	}
	list := siblingList(heading, spec.List)
	if list.Length() == 0 {
		w.structureMissing(page, "category list", spec.List)
		return nil
	}

	categories := w.links(doc, list, "a")
	w.logger.Info("walking alphabetical catalog", "url", page, "categories", len(categories))

	for _, category := range categories {
		for _, letter := range Letters {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.letterPage(ctx, spec, category, string(letter)); err != nil {
				return err
			}
		}
	}
	return nil
}

// letterPage walks the result area of one listing page. A page that fails
// to load or has no result area skips this letter only.
func (w *Walker) letterPage(ctx context.Context, spec *profile.WalkerSpec, category Entry, letter string) error {
	raw := strings.NewReplacer("{category}", string(category.Locator), "{letter}", letter).Replace(spec.LetterURL)
	loc, err := types.Locator(raw).Resolve(w.base)
	if err != nil {
		w.logger.Warn("invalid letter page", "category", category.Label, "letter", letter, "error", err)
		return nil
	}

	doc, err := w.load(ctx, loc)
	if err != nil || doc == nil {
		return err
	}
	w.metrics.CatalogPages.Add(1)

	results := doc.Find(spec.Results)
	if results.Length() == 0 {
		w.structureMissing(loc, "results", spec.Results)
		return nil
	}

	entries := w.links(doc, results, spec.Links)
	w.logger.Debug("walking letter page", "category", category.Label, "letter", letter, "entries", len(entries))
	return w.visit(ctx, spec, entries)
}
