package engine

import (
	"context"
	"sync"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/genricoloni/musicbar/internal/palette"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pipeline resolves artwork for a source, publishes the cover at once and
// the accent once sampling finishes.
//
// Refreshes may overlap. Two generation counters keep publication ordered:
// every refresh takes a ticket before resolving and is dropped if a newer
// ticket already settled, and every publication bumps the token so that
// samples started for an older publication are discarded.
type Pipeline struct {
	logger   *zap.Logger
	resolver domain.Resolver
	sampler  domain.Sampler
	sink     domain.Sink

	mu      sync.Mutex // Guards everything below and serializes publication
	issued  uint64     // Last ticket handed out
	settled uint64     // Newest ticket that got past resolution
	token   uint64     // Publication generation
	lastURL string
	closed  bool

	wg sync.WaitGroup // In-flight samples
}

// NewPipeline creates a refresh pipeline publishing to sink
func NewPipeline(logger *zap.Logger, resolver domain.Resolver, sampler domain.Sampler, sink domain.Sink) *Pipeline {
	return &Pipeline{
		logger:   logger,
		resolver: resolver,
		sampler:  sampler,
		sink:     sink,
	}
}

// Refresh recomputes the artwork for the given source. It returns once the
// cover is published; the accent follows asynchronously.
func (p *Pipeline) Refresh(ctx context.Context, controller domain.Controller, surface domain.Surface) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.issued++
	ticket := p.issued
	p.mu.Unlock()

	url := p.resolver.Resolve(ctx, controller, surface)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || ticket < p.settled {
		p.logger.Debug("Dropping superseded refresh", zap.Uint64("ticket", ticket))
		return
	}
	p.settled = ticket

	if url == "" {
		p.token++
		p.lastURL = ""
		accent := palette.Default
		p.publish("", &accent)
		return
	}

	if url == p.lastURL {
		return
	}

	p.token++
	p.lastURL = url
	if err := p.sink.PublishCover(url); err != nil {
		p.logger.Warn("Failed to publish cover", zap.String("url", url), zap.Error(err))
	}
	p.logger.Info("Artwork changed", zap.String("url", url))

	p.wg.Add(1)
	go p.sample(ctx, p.token, url)
}

// sample runs the sampler and applies its result if no newer publication
// happened meanwhile
func (p *Pipeline) sample(ctx context.Context, token uint64, url string) {
	defer p.wg.Done()

	color, err := p.sampler.Sample(ctx, url)
	if err != nil {
		p.logger.Debug("Artwork sampling failed, using default accent",
			zap.String("url", url),
			zap.Error(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.token {
		p.logger.Debug("Discarding stale accent", zap.String("url", url))
		return
	}

	accent := palette.Default
	if color != nil {
		accent = palette.Normalize(*color)
	}
	if err := p.sink.PublishAccent(&accent); err != nil {
		p.logger.Warn("Failed to publish accent", zap.Error(err))
		return
	}
	p.logger.Debug("Accent updated", zap.String("accent", palette.Hex(accent)))
}

// publish must be called with mu held
func (p *Pipeline) publish(cover string, accent *domain.Color) {
	err := multierr.Append(p.sink.PublishCover(cover), p.sink.PublishAccent(accent))
	if err != nil {
		p.logger.Warn("Failed to publish state", zap.Error(err))
	}
}

// Wait blocks until every in-flight sample has finished
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close discards pending samples, clears cover and accent on the sink and
// rejects further refreshes
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.token++
	p.lastURL = ""

	return multierr.Append(p.sink.PublishCover(""), p.sink.PublishAccent(nil))
}

// LastURL returns the cover currently published
func (p *Pipeline) LastURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastURL
}
