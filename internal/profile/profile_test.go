package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/lorekeeper/internal/types"
)

func TestDefaultProfileCoversEveryCategory(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	for _, c := range Categories {
		specs, err := p.Walkers(c)
		require.NoError(t, err, c)
		assert.NotEmpty(t, specs, c)
	}
	assert.Equal(t, []string{"Tags", "Editor", "Copyright"}, p.Layout.Boilerplate)
	assert.Equal(t, "p, li", p.Layout.Blocks)

	chars, _ := p.Walkers("characters")
	assert.Equal(t, KindNamedGroup, chars[0].Kind)
	assert.Equal(t, "a", chars[0].Links)

	novels, _ := p.Walkers("novels")
	require.NotNil(t, novels[0].Then)
	assert.Equal(t, types.ModeNovelChapter, novels[0].Then.Mode)

	events, _ := p.Walkers("events")
	require.NotNil(t, events[0].Then)
	assert.Equal(t, KindTimeline, events[0].Then.Kind)
	assert.Equal(t, 4, events[0].Offset)
}

func TestWalkersUnknownCategory(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	_, err = p.Walkers("quidditch")
	assert.ErrorIs(t, err, types.ErrUnknownCategory)
}

func TestParseRejectsInvalidProfiles(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no content", "layout: {}\n", "layout.content"},
		{"unknown category", "layout: {content: main}\ncategories:\n  quidditch: []\n", "unknown category"},
		{"unknown kind", "layout: {content: main}\ncategories:\n  magic:\n    - {kind: sitemap, page: /x/}\n", "unknown walker kind"},
		{"missing page", "layout: {content: main}\ncategories:\n  magic:\n    - {kind: link_list, region: main}\n", "page is required"},
		{"letter placeholder", "layout: {content: main}\ncategories:\n  magic:\n    - {kind: alphabetical, page: /m/, heading: {selector: h2, label: M}, letter_url: /m/, results: div}\n", "{letter}"},
		{"bad mode", "layout: {content: main}\ncategories:\n  magic:\n    - {kind: link_list, page: /m/, region: main, mode: footnote}\n", "unknown extraction mode"},
		{"unknown key", "layout: {content: main, colour: red}\n", "colour"},
		{"nested page", "layout: {content: main}\ncategories:\n  novels:\n    - {kind: link_list, page: /n/, region: main, then: {kind: link_list, page: /c/, region: main}}\n", "nested"},
		{"bad xpath", "layout: {content: main}\ncategories:\n  characters:\n    - {kind: named_group, page: /c/, groups: [A], heading: {xpath: \"//h2[\"}}\n", "xpath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
name: mirror
layout:
  content: "article"
categories:
  characters:
    - kind: named_group
      page: /people/
      heading: {selector: "h3"}
      groups: [Staff]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mirror", p.Name)
	specs, err := p.Walkers("characters")
	require.NoError(t, err)
	assert.Equal(t, "ul", specs[0].List)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const catalogHTML = `<html><body>
<h2>Notable Characters</h2><ul><li><a href="/character/harry/">Harry</a></li></ul>
<h2> Families </h2><p>intro</p><ul><li><a href="/family/weasley/">Weasley</a></li></ul>
<h2>Rita's "Scoops"</h2><ul></ul>
</body></html>`

func TestMatcherFind(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(catalogHTML))
	require.NoError(t, err)

	css := Matcher{Selector: "h2"}
	h, err := css.Find(doc, "Families")
	require.NoError(t, err)
	require.Equal(t, 1, h.Length())
	assert.Equal(t, "/family/weasley/", h.NextUntil("h1, h2, h3, h4, h5, h6").Filter("ul").First().Find("a").AttrOr("href", ""))

	xp := Matcher{XPath: "//h2[normalize-space(.)={label}]"}
	h, err = xp.Find(doc, "Notable Characters")
	require.NoError(t, err)
	require.Equal(t, 1, h.Length())
	assert.Equal(t, "Harry", h.NextUntil("h1, h2, h3, h4, h5, h6").Filter("ul").First().Find("a").Text())

	h, err = xp.Find(doc, `Rita's "Scoops"`)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Length())

	h, err = css.Find(doc, "Groups and Related Resources")
	require.NoError(t, err)
	assert.Equal(t, 0, h.Length())
}
