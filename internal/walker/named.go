package walker

import (
	"context"

	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// namedGroups resolves each group label to its heading and walks the list
// that follows it. A missing heading or list skips that group only.
func (w *Walker) namedGroups(ctx context.Context, spec *profile.WalkerSpec, page types.Locator) error {
	doc, err := w.load(ctx, page)
	if err != nil || doc == nil {
		return err
	}
	w.metrics.CatalogPages.Add(1)

	for _, group := range spec.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		heading, err := spec.Heading.Find(doc, group)
		if err != nil {
			w.logger.Error("heading matcher failed", "url", page, "group", group, "error", err)
			continue
		}
		if heading.Length() == 0 {
			w.structureMissing(page, "heading "+group, spec.Heading.Selector+spec.Heading.XPath)
			continue
		}
		list := siblingList(heading, spec.List)
		if list.Length() == 0 {
			w.structureMissing(page, "list after "+group, spec.List)
			continue
		}

		entries := w.links(doc, list, spec.Links)
		w.logger.Info("walking group", "url", page, "group", group, "entries", len(entries))
		if err := w.visit(ctx, spec, entries); err != nil {
			return err
		}
	}
	return nil
}
