package types

import "strings"

// ExtractedText is the normalized text of one document.
type ExtractedText struct {
	// Teaser is the opening teaser of article-style pages.
	Teaser string

	// Title is the page's primary heading.
	Title string

	// FactBox is the summary box shown beside the body.
	FactBox string

	// Blocks are the paragraph and list-item texts in document order.
	Blocks []string

	// Body is the joined and truncated text that gets written.
	Body string
}

// Join concatenates the prepended blocks and the body blocks with line breaks.
// The teaser, title and fact box always precede the body blocks.
func (t *ExtractedText) Join() string {
	parts := make([]string, 0, len(t.Blocks)+3)
	for _, s := range []string{t.Teaser, t.Title, t.FactBox} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, t.Blocks...)
	return strings.Join(parts, "\n")
}

// Status is the outcome of harvesting one locator.
type Status int

const (
	StatusDone Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what the harvester returns for one locator.
type Result struct {
	Locator Locator
	Status  Status
	Text    string
	// Err explains a StatusFailed result.
	Err error
}
