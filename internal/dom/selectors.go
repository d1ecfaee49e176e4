package dom

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultTable []byte

// Site is a group of selectors tried, in order, on pages of matching hosts
type Site struct {
	Name      string   `yaml:"name"`
	Hosts     []string `yaml:"hosts"`
	Selectors []string `yaml:"selectors"`
	// MetaOnly sites skip element selectors and go straight to meta tags
	MetaOnly bool `yaml:"meta_only"`

	matchers []cascadia.Selector
}

// Table is the versioned selector configuration
type Table struct {
	Version  int      `yaml:"version"`
	Sites    []Site   `yaml:"sites"`
	Fallback Site     `yaml:"fallback"`
	Meta     []string `yaml:"meta"`

	// Skipped lists selectors that failed to compile and were dropped
	Skipped []string `yaml:"-"`

	meta []cascadia.Selector
}

// DefaultTable parses the embedded selector table
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// LoadTable reads the selector table at path, falling back to the embedded
// table when path is empty or does not exist
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultTable()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selector table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and compiles a selector table
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode selector table: %w", err)
	}
	if t.Version <= 0 {
		return nil, fmt.Errorf("selector table has no version")
	}

	for i := range t.Sites {
		if t.Sites[i].Name == "" {
			return nil, fmt.Errorf("selector table site %d has no name", i)
		}
		t.Sites[i].matchers = t.compile(t.Sites[i].Selectors)
	}
	t.Fallback.matchers = t.compile(t.Fallback.Selectors)
	t.meta = t.compile(t.Meta)

	return &t, nil
}

func (t *Table) compile(selectors []string) []cascadia.Selector {
	out := make([]cascadia.Selector, 0, len(selectors))
	for _, s := range selectors {
		m, err := cascadia.Compile(s)
		if err != nil {
			t.Skipped = append(t.Skipped, s)
			continue
		}
		out = append(out, m)
	}
	return out
}

// SiteFor returns the first site whose host pattern occurs in host, or the
// fallback site
func (t *Table) SiteFor(host string) *Site {
	host = strings.ToLower(host)
	for i := range t.Sites {
		for _, pattern := range t.Sites[i].Hosts {
			if pattern != "" && strings.Contains(host, strings.ToLower(pattern)) {
				return &t.Sites[i]
			}
		}
	}
	return &t.Fallback
}

// ImageURL tries the site's selectors in order and returns the first
// element image URL found
func (s *Site) ImageURL(d *Document) string {
	if s.MetaOnly {
		return ""
	}
	for _, m := range s.matchers {
		if u := d.ImageURL(d.First(m)); u != "" {
			return u
		}
	}
	return ""
}

// MetaImageURL searches document-level metadata tags in priority order
func (t *Table) MetaImageURL(d *Document) string {
	for _, m := range t.meta {
		node := d.First(m)
		if node.Length() == 0 {
			continue
		}
		if u := strings.TrimSpace(node.AttrOr("content", "")); u != "" {
			return u
		}
		if u := strings.TrimSpace(node.AttrOr("href", "")); u != "" {
			return u
		}
	}
	return ""
}
