package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
)

// Matcher locates a heading by its label. Exactly one of Selector or XPath
// is set. Selector picks candidate elements whose trimmed text equals the
// label; XPath is an expression in which {label} is replaced by the quoted
// label.
type Matcher struct {
	Selector string `yaml:"selector"`
	XPath    string `yaml:"xpath"`
	// Label is a fixed label used by walkers that look for a single heading.
	Label string `yaml:"label"`
}

func (m Matcher) validate() error {
	switch {
	case m.Selector == "" && m.XPath == "":
		return errors.New("heading needs a selector or an xpath")
	case m.Selector != "" && m.XPath != "":
		return errors.New("heading takes a selector or an xpath, not both")
	case m.XPath != "":
		if _, err := xpath.Compile(m.expand("x")); err != nil {
			return fmt.Errorf("heading xpath: %w", err)
		}
	}
	return nil
}

// Find returns the first heading in doc matching label, or an empty selection.
func (m Matcher) Find(doc *goquery.Document, label string) (*goquery.Selection, error) {
	if m.XPath == "" {
		return doc.Find(m.Selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return normalize(s.Text()) == normalize(label)
		}).First(), nil
	}

	if len(doc.Nodes) == 0 {
		return doc.Selection, nil
	}
	node, err := htmlquery.Query(doc.Nodes[0], m.expand(label))
	if err != nil {
		return nil, fmt.Errorf("heading xpath %q: %w", m.XPath, err)
	}
	if node == nil {
		return doc.FindNodes(), nil
	}
	return doc.FindNodes(node), nil
}

func (m Matcher) expand(label string) string {
	return strings.ReplaceAll(m.XPath, "{label}", xpathLiteral(label))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	for i, p := range parts {
		parts[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(parts, `, "'", `) + ")"
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
