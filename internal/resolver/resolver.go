// Package resolver finds the artwork URL of the current track, trying
// structured metadata first, then site-specific page scraping, then generic
// page metadata.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/genricoloni/musicbar/internal/dom"
	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
)

var (
	// Scalar metadata fields holding a single artwork URL, highest priority first
	directFields = []string{"artworkUrl", "coverUrl", "image", "thumbnail", "albumArt"}

	// Metadata fields holding candidate lists
	listFields = []string{"artwork", "images", "pictures"}
)

// ArtworkResolver implements domain.Resolver
type ArtworkResolver struct {
	logger *zap.Logger
	table  *dom.Table
}

// NewArtworkResolver creates a resolver using the given selector table
func NewArtworkResolver(logger *zap.Logger, table *dom.Table) *ArtworkResolver {
	if len(table.Skipped) > 0 {
		logger.Warn("Selector table contains invalid selectors",
			zap.Int("version", table.Version),
			zap.Strings("skipped", table.Skipped))
	}
	return &ArtworkResolver{logger: logger, table: table}
}

// Resolve returns the best absolute artwork URL for the source, or ""
func (r *ArtworkResolver) Resolve(ctx context.Context, controller domain.Controller, surface domain.Surface) string {
	if u := r.guard("metadata", func() string { return r.fromController(controller, surface) }); u != "" {
		return u
	}
	if surface == nil {
		return ""
	}
	return r.guard("document", func() string { return r.fromSurface(ctx, surface) })
}

// guard runs one resolution tier, treating panics from untrusted data as
// "nothing found" so the next tier still runs
func (r *ArtworkResolver) guard(tier string, fn func() string) (url string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Artwork lookup failed", zap.String("tier", tier), zap.Any("panic", rec))
			url = ""
		}
	}()
	return fn()
}

func (r *ArtworkResolver) fromController(controller domain.Controller, surface domain.Surface) string {
	if controller == nil {
		return ""
	}

	meta, err := controller.Metadata()
	if err != nil {
		r.logger.Debug("Controller metadata unavailable", zap.Error(err))
		return ""
	}
	if meta == nil {
		return ""
	}

	base := meta.String("url")
	if surface != nil {
		if loc := surface.Location(); loc != "" {
			base = loc
		}
	}
	return FromMetadata(meta, base)
}

// FromMetadata picks the artwork URL from a metadata object: direct fields
// in priority order, then the largest candidate of the first non-empty list
func FromMetadata(meta domain.Metadata, base string) string {
	for _, field := range directFields {
		if u := meta.String(field); u != "" {
			return dom.ResolveURL(u, base)
		}
	}
	if nested, ok := meta["artwork"].(map[string]any); ok {
		if u := domain.Metadata(nested).String("src"); u != "" {
			return dom.ResolveURL(u, base)
		}
	}

	for _, field := range listFields {
		if c, ok := PickLargest(Candidates(meta[field])); ok {
			return dom.ResolveURL(c.Src, base)
		}
	}
	return ""
}

func (r *ArtworkResolver) fromSurface(ctx context.Context, surface domain.Surface) string {
	doc, err := surface.Document(ctx)
	if err != nil {
		r.logger.Debug("Surface document unavailable", zap.Error(err))
		return ""
	}
	return r.FromDocument(doc)
}

// FromDocument scrapes a page: the site's selectors first, then the
// generic meta tags
func (r *ArtworkResolver) FromDocument(doc *dom.Document) string {
	site := r.table.SiteFor(doc.Host())

	raw := site.ImageURL(doc)
	if raw == "" {
		raw = r.table.MetaImageURL(doc)
	}
	if raw == "" {
		return ""
	}

	r.logger.Debug("Artwork found in page",
		zap.String("site", site.Name),
		zap.String("host", doc.Host()))
	return doc.Resolve(raw)
}

// Candidates decodes an untrusted candidate list. Entries may be maps with
// src|url, width, height and sizes keys, bare URL strings, or already typed
// candidates. Anything else is ignored.
func Candidates(v any) []domain.ArtworkCandidate {
	var out []domain.ArtworkCandidate

	switch list := v.(type) {
	case []domain.ArtworkCandidate:
		return list
	case []map[string]any:
		for _, entry := range list {
			out = append(out, candidateFromMap(entry))
		}
	case []domain.Metadata:
		for _, entry := range list {
			out = append(out, candidateFromMap(entry))
		}
	case []string:
		for _, src := range list {
			out = append(out, domain.ArtworkCandidate{Src: src})
		}
	case []any:
		for _, entry := range list {
			switch e := entry.(type) {
			case map[string]any:
				out = append(out, candidateFromMap(e))
			case domain.Metadata:
				out = append(out, candidateFromMap(e))
			case string:
				out = append(out, domain.ArtworkCandidate{Src: e})
			}
		}
	}
	return out
}

func candidateFromMap(m map[string]any) domain.ArtworkCandidate {
	meta := domain.Metadata(m)

	c := domain.ArtworkCandidate{Src: meta.String("src")}
	if c.Src == "" {
		c.Src = meta.String("url")
	}

	w, wok := number(m["width"])
	h, hok := number(m["height"])
	if wok && hok {
		c.Width, c.Height, c.HasDimensions = w, h, true
	}

	switch sizes := m["sizes"].(type) {
	case string:
		c.Sizes = sizes
	case nil:
	default:
		c.Sizes = fmt.Sprint(sizes)
	}
	return c
}

// PickLargest returns the candidate with the largest area. Ties keep list
// order and candidates without a source are skipped.
func PickLargest(candidates []domain.ArtworkCandidate) (domain.ArtworkCandidate, bool) {
	sorted := make([]domain.ArtworkCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Area() > sorted[j].Area()
	})

	for _, c := range sorted {
		if strings.TrimSpace(c.Src) != "" {
			c.Src = strings.TrimSpace(c.Src)
			return c, true
		}
	}
	return domain.ArtworkCandidate{}, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
