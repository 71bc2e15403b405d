// Package extract turns a fetched document page into normalized plain text.
package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Extractor applies a page layout to documents. It holds no per-page state.
type Extractor struct {
	layout profile.Layout
	logger *slog.Logger
}

// New creates an Extractor for layout.
func New(layout profile.Layout, logger *slog.Logger) *Extractor {
	return &Extractor{
		layout: layout,
		logger: logger.With("component", "extractor"),
	}
}

// Extract returns the text of page in the given mode. For ModeNovelChapter
// it also returns the cross-reference links found in the content region,
// which the caller fetches as standard documents.
func (e *Extractor) Extract(page *types.Page, mode types.ExtractionMode) (*types.ExtractedText, []types.Locator, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, nil, err
	}
	src := string(page.Locator)
	text := &types.ExtractedText{}

	if mode == types.ModeArticle {
		text.Teaser = e.single(doc, e.layout.Teaser, src, "teaser")
	}
	text.Title = e.single(doc, e.layout.Heading, src, "heading")

	content := doc.Find(e.layout.Content).First()
	if content.Length() == 0 {
		return nil, nil, types.Missing(src, e.layout.Content)
	}

	var links []types.Locator
	if mode == types.ModeNovelChapter {
		links = e.chapterLinks(doc, content)
	}

	text.FactBox = e.single(doc, e.layout.FactBox, src, "fact_box")
	text.Blocks = e.blocks(content)
	text.Body = Truncate(text.Join(), e.layout.Boilerplate)

	if strings.TrimSpace(text.Body) == "" {
		return nil, nil, &types.StructuralError{URL: src, Selector: e.layout.Blocks, Err: types.ErrEmptyContent}
	}
	return text, links, nil
}

// single returns the normalized text of the first match of selector.
// A missing block is logged and yields "".
func (e *Extractor) single(doc *goquery.Document, selector, src, block string) string {
	if selector == "" {
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		e.logger.Debug("optional block missing", "url", src, "block", block, "selector", selector)
		return ""
	}
	return clean(sel.Text())
}

// blocks collects paragraph and list-item text in document order. Blocks
// nested in another block, or inside the teaser or fact box, are skipped so
// no text appears twice.
func (e *Extractor) blocks(content *goquery.Selection) []string {
	var out []string
	content.Find(e.layout.Blocks).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(e.layout.Blocks).Length() > 0 {
			return
		}
		for _, region := range []string{e.layout.FactBox, e.layout.Teaser} {
			if region != "" && s.Closest(region).Length() > 0 {
				return
			}
		}
		if t := clean(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// chapterLinks returns the on-site links in content, excluding same-page
// anchors and attachments, in document order without duplicates.
func (e *Extractor) chapterLinks(doc *goquery.Document, content *goquery.Selection) []types.Locator {
	base := doc.Url
	self := ""
	if base != nil {
		self = types.Locator(base.String()).Key()
	}

	seen := make(map[string]bool)
	var links []types.Locator
	content.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || e.isAttachment(href) {
			return
		}
		loc, err := types.Locator(href).Resolve(base)
		if err != nil {
			return
		}
		if base != nil && !loc.SameHost(base) {
			return
		}
		key := loc.Key()
		if key == self || seen[key] {
			return
		}
		seen[key] = true
		links = append(links, loc)
	})
	return links
}

func (e *Extractor) isAttachment(href string) bool {
	lower := strings.ToLower(href)
	if u, err := url.Parse(lower); err == nil {
		lower = u.Path
	}
	for _, pattern := range e.layout.SkipLinks {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// Truncate cuts s at the last occurrence of each marker in turn. Each cut
// shortens the string seen by the next marker.
func Truncate(s string, markers []string) string {
	for _, m := range markers {
		if m == "" {
			continue
		}
		if i := strings.LastIndex(s, m); i >= 0 {
			s = s[:i]
		}
	}
	return s
}

// clean collapses runs of whitespace inside one block.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
