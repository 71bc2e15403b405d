package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for m, name := range modeNames {
		got, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, got)

	_, err = ParseMode("footnote")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestModeWrites(t *testing.T) {
	assert.True(t, ModeStandard.Writes())
	assert.True(t, ModeArticle.Writes())
	assert.True(t, ModeNovelChapter.Writes())
	assert.False(t, ModeTimelineEntry.Writes())
}

func TestExtractedTextJoinOrder(t *testing.T) {
	text := ExtractedText{
		Teaser:  "teaser",
		Title:   "Harry Potter",
		FactBox: "Born 31 July 1980",
		Blocks:  []string{"first", "second"},
	}
	assert.Equal(t, "teaser\nHarry Potter\nBorn 31 July 1980\nfirst\nsecond", text.Join())

	text = ExtractedText{Title: "Hedwig", Blocks: []string{"owl"}}
	assert.Equal(t, "Hedwig\nowl", text.Join())
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, IsTransient(&FetchError{URL: "u", StatusCode: 503, Retryable: true}))
	assert.False(t, IsTransient(&FetchError{URL: "u", StatusCode: 404}))
	assert.False(t, IsTransient(Missing("u", "div.entry-content")))
	assert.ErrorIs(t, Missing("u", "ul"), ErrNotFound)
}
