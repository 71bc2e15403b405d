// Package profile holds the declarative extraction profile: which catalog
// walkers run for each category and which page regions the extractor reads.
package profile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/lorekeeper/internal/types"
)

//go:embed default.yaml
var defaultProfile []byte

// Categories is the fixed order RunAll walks the site in.
var Categories = []string{"characters", "places", "magic", "things", "creatures", "novels", "events"}

// Kind names a catalog walker variant.
type Kind string

const (
	KindNamedGroup   Kind = "named_group"
	KindAlphabetical Kind = "alphabetical"
	KindLinkList     Kind = "link_list"
	KindTimeline     Kind = "timeline"
)

// Profile maps each category to its walkers and describes the document layout.
type Profile struct {
	Name       string                  `yaml:"name"`
	Layout     Layout                  `yaml:"layout"`
	Categories map[string][]WalkerSpec `yaml:"categories"`
}

// Layout holds the selectors the extractor applies to every document page.
type Layout struct {
	// Teaser is the opening block of article-style pages.
	Teaser string `yaml:"teaser"`
	// Heading is the primary page heading.
	Heading string `yaml:"heading"`
	// Content is the main content region. A page without it is rejected.
	Content string `yaml:"content"`
	// FactBox is the summary box beside the body.
	FactBox string `yaml:"fact_box"`
	// Blocks selects paragraph and list-item blocks inside Content.
	Blocks string `yaml:"blocks"`
	// Boilerplate markers are cut from the joined text at their last occurrence, in order.
	Boilerplate []string `yaml:"boilerplate"`
	// SkipLinks are substrings marking attachment links that chapters do not follow.
	SkipLinks []string `yaml:"skip_links"`
}

// WalkerSpec configures one catalog walker.
type WalkerSpec struct {
	Kind Kind `yaml:"kind"`
	// Page is the catalog page, absolute or relative to the site base URL.
	// Nested specs leave it empty and receive the parent's entries instead.
	Page string               `yaml:"page"`
	Mode types.ExtractionMode `yaml:"mode"`

	Heading Matcher  `yaml:"heading"`
	Groups  []string `yaml:"groups"`
	// List is the sibling element following a heading.
	List string `yaml:"list"`
	// Links selects the anchors inside a list, region or result area.
	Links string `yaml:"links"`

	Region string `yaml:"region"`
	Offset int    `yaml:"offset"`
	Limit  int    `yaml:"limit"`

	// LetterURL expands {category} and {letter} into one listing page.
	LetterURL string `yaml:"letter_url"`
	Results   string `yaml:"results"`

	Entries   string `yaml:"entries"`
	EntryLink string `yaml:"entry_link"`
	Sentinel  string `yaml:"sentinel"`

	Then *WalkerSpec `yaml:"then"`
}

// Default returns the embedded profile for the lore site.
func Default() (*Profile, error) {
	return Parse(bytes.NewReader(defaultProfile))
}

// Load reads the profile at path, or the embedded default when path is empty.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML profile. Unknown keys are rejected.
func Parse(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty profile")
		}
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Walkers returns the walker specs of category in run order.
func (p *Profile) Walkers(category string) ([]WalkerSpec, error) {
	specs, ok := p.Categories[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownCategory, category)
	}
	return specs, nil
}

func (p *Profile) applyDefaults() {
	if p.Layout.Blocks == "" {
		p.Layout.Blocks = "p, li"
	}
	if p.Layout.Boilerplate == nil {
		p.Layout.Boilerplate = []string{"Tags", "Editor", "Copyright"}
	}
	for name, specs := range p.Categories {
		for i := range specs {
			specs[i].applyDefaults()
		}
		p.Categories[name] = specs
	}
}

func (s *WalkerSpec) applyDefaults() {
	if s.List == "" {
		s.List = "ul"
	}
	if s.Links == "" {
		s.Links = "a"
	}
	if s.EntryLink == "" {
		s.EntryLink = "a"
	}
	if s.Then != nil {
		s.Then.applyDefaults()
	}
}

// Validate checks that every category is known and every walker is complete.
func (p *Profile) Validate() error {
	if p.Layout.Content == "" {
		return errors.New("layout.content is required")
	}
	for name, specs := range p.Categories {
		if !knownCategory(name) {
			return fmt.Errorf("%w: %q (valid: %s)", types.ErrUnknownCategory, name, strings.Join(Categories, ", "))
		}
		for i := range specs {
			if err := specs[i].validate(true); err != nil {
				return fmt.Errorf("categories.%s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

func (s *WalkerSpec) validate(root bool) error {
	if root && s.Page == "" {
		return errors.New("page is required")
	}
	if !root && s.Page != "" {
		return errors.New("nested walkers take their page from the parent")
	}

	switch s.Kind {
	case KindNamedGroup:
		if len(s.Groups) == 0 {
			return errors.New("named_group needs groups")
		}
		if err := s.Heading.validate(); err != nil {
			return err
		}
	case KindAlphabetical:
		if s.Heading.Label == "" {
			return errors.New("alphabetical needs heading.label")
		}
		if err := s.Heading.validate(); err != nil {
			return err
		}
		if !strings.Contains(s.LetterURL, "{letter}") {
			return errors.New("alphabetical letter_url must contain {letter}")
		}
		if s.Results == "" {
			return errors.New("alphabetical needs results")
		}
	case KindLinkList:
		if s.Region == "" {
			return errors.New("link_list needs region")
		}
		if s.Offset < 0 || s.Limit < 0 {
			return errors.New("offset and limit must be non-negative")
		}
	case KindTimeline:
		if s.Entries == "" {
			return errors.New("timeline needs entries")
		}
	default:
		return fmt.Errorf("unknown walker kind %q", s.Kind)
	}

	if s.Then != nil {
		if s.Kind != KindLinkList && s.Kind != KindNamedGroup {
			return fmt.Errorf("%s walkers cannot nest", s.Kind)
		}
		if err := s.Then.validate(false); err != nil {
			return fmt.Errorf("then: %w", err)
		}
	}
	return nil
}

func knownCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
