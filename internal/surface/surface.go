// Package surface provides the pages the artwork resolver scrapes when a
// player's metadata carries no artwork.
package surface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/musicbar/internal/dom"
	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
)

// Static serves a fixed HTML snapshot
type Static struct {
	location string
	html     []byte
	rendered dom.Rendered
}

// NewStatic creates a surface over an in-memory page loaded from location
func NewStatic(location string, html []byte) *Static {
	return &Static{location: location, html: html}
}

// WithRendered attaches rendered-property lookups to every document served
func (s *Static) WithRendered(r dom.Rendered) *Static {
	s.rendered = r
	return s
}

// Location returns the page URL
func (s *Static) Location() string {
	return s.location
}

// Document parses the snapshot
func (s *Static) Document(ctx context.Context) (*dom.Document, error) {
	if len(s.html) == 0 {
		return nil, domain.ErrNoDocument
	}
	doc, err := dom.ParseBytes(s.html, s.location)
	if err != nil {
		return nil, err
	}
	if s.rendered != nil {
		doc = doc.WithRendered(s.rendered)
	}
	return doc, nil
}

// Page is a live web page fetched on demand. Its location may follow the
// player (a tab navigating to another track), so it is looked up on every
// call. Snapshots are reused for ttl to avoid hammering the site from the
// fallback poll loop.
type Page struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	locate  func() string
	ttl     time.Duration

	mu        sync.Mutex
	cached    *dom.Document
	cachedURL string
	fetchedAt time.Time
	now       func() time.Time
}

// NewPage creates a surface for a fixed URL
func NewPage(logger *zap.Logger, fetcher domain.Fetcher, rawURL string, ttl time.Duration) *Page {
	return NewDynamicPage(logger, fetcher, func() string { return rawURL }, ttl)
}

// NewDynamicPage creates a surface whose URL is resolved by locate on each access
func NewDynamicPage(logger *zap.Logger, fetcher domain.Fetcher, locate func() string, ttl time.Duration) *Page {
	return &Page{
		logger:  logger,
		fetcher: fetcher,
		locate:  locate,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Location returns the page URL currently shown
func (p *Page) Location() string {
	return p.locate()
}

// Document fetches and parses the page, reusing a fresh snapshot of the same URL
func (p *Page) Document(ctx context.Context) (*dom.Document, error) {
	location := p.locate()
	if location == "" {
		return nil, domain.ErrNoDocument
	}

	p.mu.Lock()
	if p.cached != nil && p.cachedURL == location && p.now().Sub(p.fetchedAt) < p.ttl {
		doc := p.cached
		p.mu.Unlock()
		return doc, nil
	}
	p.mu.Unlock()

	data, err := p.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	doc, err := dom.ParseBytes(data, location)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cached = doc
	p.cachedURL = location
	p.fetchedAt = p.now()
	p.mu.Unlock()

	p.logger.Debug("Page snapshot refreshed", zap.String("url", location), zap.Int("bytes", len(data)))
	return doc, nil
}
