package walker

import (
	"context"

	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// linkList walks the anchors of a content region after offset/limit slicing.
func (w *Walker) linkList(ctx context.Context, spec *profile.WalkerSpec, page types.Locator) error {
	doc, err := w.load(ctx, page)
	if err != nil || doc == nil {
		return err
	}
	w.metrics.CatalogPages.Add(1)

	region := doc.Find(spec.Region)
	if region.Length() == 0 {
		w.structureMissing(page, "region", spec.Region)
		return nil
	}

	entries := slice(w.links(doc, region, spec.Links), spec.Offset, spec.Limit)
	w.logger.Info("walking link list", "url", page, "entries", len(entries))
	return w.visit(ctx, spec, entries)
}
