package types

import (
	"fmt"
	"strings"
)

// ExtractionMode selects the block layout and return path of one extraction.
// The modes are mutually exclusive.
type ExtractionMode int

const (
	// ModeStandard extracts heading, fact box and body and writes the document.
	ModeStandard ExtractionMode = iota
	// ModeArticle additionally prepends the opening teaser block.
	ModeArticle
	// ModeNovelChapter follows cross-reference links in the body one hop deep.
	ModeNovelChapter
	// ModeTimelineEntry returns the text to the caller instead of writing it.
	ModeTimelineEntry
)

var modeNames = map[ExtractionMode]string{
	ModeStandard:      "standard",
	ModeArticle:       "article",
	ModeNovelChapter:  "novel_chapter",
	ModeTimelineEntry: "timeline_entry",
}

func (m ExtractionMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode parses a mode name. The empty string is ModeStandard.
func ParseMode(s string) (ExtractionMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStandard, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeStandard, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ExtractionMode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m ExtractionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Writes reports whether a successful extraction in this mode is written to the sink.
func (m ExtractionMode) Writes() bool {
	return m != ModeTimelineEntry
}
