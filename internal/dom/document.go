// Package dom wraps parsed page snapshots and extracts artwork URLs from
// them using a versioned table of CSS selectors.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Rendered exposes layout-time properties that a static HTML snapshot cannot
// know. Surfaces backed by a live renderer provide it; parsed snapshots
// leave it nil.
type Rendered interface {
	// CurrentSrc returns the source an <img> is actually displaying
	CurrentSrc(sel *goquery.Selection) string
	// BackgroundImage returns the computed background-image declaration
	BackgroundImage(sel *goquery.Selection) string
}

// Document is a parsed page together with the location it was loaded from
type Document struct {
	doc      *goquery.Document
	location *url.URL
	rendered Rendered
}

// Parse reads an HTML document loaded from location
func Parse(r io.Reader, location string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	loc, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid document location: %w", err)
	}

	return &Document{
		doc:      goquery.NewDocumentFromNode(root),
		location: loc,
	}, nil
}

// ParseBytes is Parse over an in-memory page
func ParseBytes(data []byte, location string) (*Document, error) {
	return Parse(bytes.NewReader(data), location)
}

// WithRendered returns a copy of d that consults r for rendered properties
func (d *Document) WithRendered(r Rendered) *Document {
	cp := *d
	cp.rendered = r
	return &cp
}

// Host returns the host (with port) of the document location
func (d *Document) Host() string {
	return d.location.Host
}

// Location returns the absolute document URL
func (d *Document) Location() string {
	return d.location.String()
}

// Resolve makes raw absolute against the document location
func (d *Document) Resolve(raw string) string {
	return ResolveURL(raw, d.location.String())
}

// First returns the first element matching m
func (d *Document) First(m cascadia.Selector) *goquery.Selection {
	return d.doc.FindMatcher(m).First()
}

// ResolveURL resolves raw against base. Unparsable input is returned as-is
// so a malformed base never hides an otherwise usable URL.
func ResolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if base == "" {
		return ref.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(ref).String()
}

// ImageURL extracts the image URL an element displays.
// For <img> it prefers the rendered source, then src, then the last srcset
// entry. For any other element it reads the background-image declaration,
// computed style first, inline style second.
func (d *Document) ImageURL(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}

	if goquery.NodeName(sel) == "img" {
		if d.rendered != nil {
			if src := strings.TrimSpace(d.rendered.CurrentSrc(sel)); src != "" {
				return src
			}
		}
		if src := strings.TrimSpace(sel.AttrOr("src", "")); src != "" {
			return src
		}
		return ParseSrcset(sel.AttrOr("srcset", ""))
	}

	if d.rendered != nil {
		if u := ExtractBackgroundURL(d.rendered.BackgroundImage(sel)); u != "" {
			return u
		}
	}
	return ExtractBackgroundURL(inlineBackground(sel.AttrOr("style", "")))
}

// ParseSrcset returns the URL of the last srcset candidate, which by
// convention is the largest
func ParseSrcset(value string) string {
	var last string
	for _, entry := range strings.Split(value, ",") {
		fields := strings.Fields(entry)
		if len(fields) > 0 {
			last = fields[0]
		}
	}
	return last
}

var backgroundURL = regexp.MustCompile(`url\(\s*["']?(.*?)["']?\s*\)`)

// ExtractBackgroundURL pulls the first url(...) out of a background-image value
func ExtractBackgroundURL(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "none" {
		return ""
	}
	match := backgroundURL.FindStringSubmatch(value)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// inlineBackground finds the background-image (or background shorthand)
// declaration in a style attribute
func inlineBackground(style string) string {
	var shorthand string
	for _, decl := range strings.Split(style, ";") {
		prop, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "background-image":
			return strings.TrimSpace(value)
		case "background":
			shorthand = strings.TrimSpace(value)
		}
	}
	return shorthand
}
