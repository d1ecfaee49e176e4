package dom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

func mustParse(t *testing.T, page, location string) *Document {
	t.Helper()
	doc, err := ParseBytes([]byte(page), location)
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

// stubRendered reports fixed rendered properties for every element
type stubRendered struct {
	currentSrc string
	background string
}

func (s stubRendered) CurrentSrc(*goquery.Selection) string      { return s.currentSrc }
func (s stubRendered) BackgroundImage(*goquery.Selection) string { return s.background }

func TestParseSrcset(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"small.jpg 1x", "small.jpg"},
		{"small.jpg 120w, medium.jpg 480w, large.jpg 1080w", "large.jpg"},
		{" a.jpg 1x ,  b.jpg 2x , ", "b.jpg"},
	}

	for _, tt := range tests {
		if got := ParseSrcset(tt.input); got != tt.expected {
			t.Errorf("ParseSrcset(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestExtractBackgroundURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"none", ""},
		{"", ""},
		{`url("https://cdn.example/a.jpg")`, "https://cdn.example/a.jpg"},
		{`url('b.png')`, "b.png"},
		{`url(c.webp), linear-gradient(red, blue)`, "c.webp"},
		{`linear-gradient(red, blue)`, ""},
	}

	for _, tt := range tests {
		if got := ExtractBackgroundURL(tt.input); got != tt.expected {
			t.Errorf("ExtractBackgroundURL(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		base     string
		expected string
	}{
		{"Relative Path", "/img/cover.jpg", "https://music.example/album/1", "https://music.example/img/cover.jpg"},
		{"Protocol Relative", "//cdn.example/a.jpg", "https://music.example/", "https://cdn.example/a.jpg"},
		{"Already Absolute", "https://cdn.example/a.jpg", "https://music.example/", "https://cdn.example/a.jpg"},
		{"Empty", "  ", "https://music.example/", ""},
		{"No Base", "cover.jpg", "", "cover.jpg"},
		{"Malformed Raw Kept", "http://[::1", "https://music.example/", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.raw, tt.base); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDocument_ImageURL(t *testing.T) {
	page := `<html><body>
		<img id="both" src="src.jpg" srcset="a.jpg 1x, b.jpg 2x">
		<img id="srcset" srcset="a.jpg 1x, b.jpg 2x">
		<div id="inline" style="color: red; background-image: url('inline.jpg')"></div>
		<div id="shorthand" style="background: #000 url(short.jpg) no-repeat"></div>
		<div id="plain"></div>
	</body></html>`

	tests := []struct {
		name     string
		selector string
		rendered Rendered
		expected string
	}{
		{"Img Prefers Src Over Srcset", "#both", nil, "src.jpg"},
		{"Img Falls Back To Srcset", "#srcset", nil, "b.jpg"},
		{"Img Prefers Rendered Source", "#both", stubRendered{currentSrc: "current.jpg"}, "current.jpg"},
		{"Inline Background", "#inline", nil, "inline.jpg"},
		{"Background Shorthand", "#shorthand", nil, "short.jpg"},
		{"Computed Beats Inline", "#inline", stubRendered{background: `url("computed.jpg")`}, "computed.jpg"},
		{"Computed None Falls Back", "#inline", stubRendered{background: "none"}, "inline.jpg"},
		{"No Image", "#plain", nil, ""},
		{"Missing Element", "#missing", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, page, "https://music.example/")
			if tt.rendered != nil {
				doc = doc.WithRendered(tt.rendered)
			}
			sel := doc.First(cascadia.MustCompile(tt.selector))
			if got := doc.ImageURL(sel); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDefaultTable_SiteDispatch(t *testing.T) {
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("embedded table failed to load: %v", err)
	}

	tests := []struct {
		host     string
		expected string
	}{
		{"music.youtube.com", "youtube-music"},
		{"www.youtube.com", "youtube"},
		{"open.spotify.com", "spotify"},
		{"artist.bandcamp.com", "bandcamp"},
		{"radio.example.org", ""},
	}

	for _, tt := range tests {
		if got := table.SiteFor(tt.host).Name; got != tt.expected {
			t.Errorf("SiteFor(%q): expected %q, got %q", tt.host, tt.expected, got)
		}
	}
}

func TestTable_SpotifySelectorPriority(t *testing.T) {
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("embedded table failed to load: %v", err)
	}

	page := `<html><body>
		<footer><img src="https://i.scdn.co/image/footer"></footer>
		<img data-testid="cover-art-image" src="https://i.scdn.co/image/cover">
	</body></html>`
	doc := mustParse(t, page, "https://open.spotify.com/track/1")

	if got := table.SiteFor(doc.Host()).ImageURL(doc); got != "https://i.scdn.co/image/cover" {
		t.Errorf("expected cover-art image to win, got %q", got)
	}
}

func TestTable_MetaImageURL(t *testing.T) {
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("embedded table failed to load: %v", err)
	}

	tests := []struct {
		name     string
		head     string
		expected string
	}{
		{
			name:     "Open Graph Wins",
			head:     `<meta name="twitter:image" content="tw.jpg"><meta property="og:image" content="og.jpg">`,
			expected: "og.jpg",
		},
		{
			name:     "Twitter Fallback",
			head:     `<meta name="twitter:image" content="tw.jpg">`,
			expected: "tw.jpg",
		},
		{
			name:     "Link Href",
			head:     `<link rel="image_src" href="/thumb.jpg">`,
			expected: "/thumb.jpg",
		},
		{
			name:     "Empty Content Skipped",
			head:     `<meta property="og:image" content=""><meta itemprop="image" content="item.jpg">`,
			expected: "item.jpg",
		},
		{
			name:     "Nothing",
			head:     `<title>x</title>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, "<html><head>"+tt.head+"</head><body></body></html>", "https://www.youtube.com/watch?v=1")
			if got := table.MetaImageURL(doc); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseTable_Validation(t *testing.T) {
	tests := []struct {
		name          string
		data          string
		expectedError string
		skipped       int
	}{
		{
			name:          "Missing Version",
			data:          "sites: []",
			expectedError: "no version",
		},
		{
			name:          "Unnamed Site",
			data:          "version: 1\nsites:\n  - hosts: [a.com]",
			expectedError: "has no name",
		},
		{
			name:          "Invalid YAML",
			data:          "version: [",
			expectedError: "failed to decode",
		},
		{
			name:    "Invalid Selector Skipped",
			data:    "version: 1\nsites:\n  - name: a\n    hosts: [a.com]\n    selectors: ['img[', 'img']",
			skipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseTable([]byte(tt.data))
			if tt.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectedError) {
					t.Fatalf("expected error containing %q, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(table.Skipped) != tt.skipped {
				t.Errorf("expected %d skipped selectors, got %v", tt.skipped, table.Skipped)
			}
		})
	}
}

func TestLoadTable_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	data := "version: 9\nsites:\n  - name: custom\n    hosts: [radio.example]\n    selectors: ['#art']\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write override: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Version != 9 || table.SiteFor("radio.example").Name != "custom" {
		t.Errorf("override not applied: %+v", table)
	}

	// A missing override falls back to the embedded table
	table, err = LoadTable(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.SiteFor("open.spotify.com").Name != "spotify" {
		t.Error("expected embedded table when override is missing")
	}
}
