package sink

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/genricoloni/musicbar/internal/palette"
	"go.uber.org/zap"
)

const (
	// DefaultDebounce waits for this much silence before rendering, so
	// skipping through tracks does not render every one of them
	DefaultDebounce = 500 * time.Millisecond
	coverTimeout    = 10 * time.Second
	jobQueue        = 16
)

// job is one backdrop update. A nil accent restores the original wallpaper.
type job struct {
	cover  string
	accent *domain.Color
}

// Backdrop renders the accent into a desktop wallpaper. Publications are
// queued and handled on a worker goroutine.
type Backdrop struct {
	logger    *zap.Logger
	fetcher   domain.Fetcher
	processor domain.Processor
	executor  domain.Executor
	debounce  time.Duration

	mu     sync.Mutex
	cover  string
	jobs   chan job
	cancel context.CancelFunc
	done   chan struct{}

	// Owned by the worker until done is closed
	original string
	applied  bool
}

// NewBackdrop creates a backdrop sink. Start must be called before
// publications take effect.
func NewBackdrop(logger *zap.Logger, fetcher domain.Fetcher, processor domain.Processor, executor domain.Executor) *Backdrop {
	return &Backdrop{
		logger:    logger,
		fetcher:   fetcher,
		processor: processor,
		executor:  executor,
		debounce:  DefaultDebounce,
		jobs:      make(chan job, jobQueue),
	}
}

// Start captures the current wallpaper and launches the render loop
func (b *Backdrop) Start(ctx context.Context) error {
	if wallpaper, err := b.executor.GetCurrentWallpaper(ctx); err == nil {
		b.original = wallpaper
		b.logger.Info("Captured original wallpaper for restoration",
			zap.String("path", wallpaper))
	} else {
		b.logger.Warn("Could not capture current wallpaper, restore on exit will be disabled",
			zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.mu.Lock()
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		b.runLoop(runCtx)
	}()
	return nil
}

// PublishCover implements domain.Sink. The cover is picked up by the next
// accent publication.
func (b *Backdrop) PublishCover(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cover = url
	return nil
}

// PublishAccent implements domain.Sink
func (b *Backdrop) PublishAccent(c *domain.Color) error {
	b.mu.Lock()
	j := job{cover: b.cover}
	b.mu.Unlock()

	if c != nil {
		accent := *c
		j.accent = &accent
	}

	select {
	case b.jobs <- j:
	default:
		b.logger.Warn("Backdrop queue full, dropping update")
	}
	return nil
}

// runLoop debounces jobs and renders the last one
func (b *Backdrop) runLoop(ctx context.Context) {
	timer := time.NewTimer(b.debounce)
	timer.Stop()

	var pending *job

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("Backdrop loop stopped")
			return

		case j := <-b.jobs:
			pending = &j
			timer.Reset(b.debounce)

		case <-timer.C:
			if pending != nil {
				b.apply(ctx, *pending)
				pending = nil
			}
		}
	}
}

func (b *Backdrop) apply(ctx context.Context, j job) {
	if j.accent == nil {
		b.restore(ctx)
		return
	}

	var cover []byte
	if j.cover != "" {
		fetchCtx, cancel := context.WithTimeout(ctx, coverTimeout)
		data, err := b.fetcher.Fetch(fetchCtx, j.cover)
		cancel()
		if err != nil {
			b.logger.Debug("Artwork unavailable for backdrop", zap.String("url", j.cover), zap.Error(err))
		} else {
			cover = data
		}
	}

	path, err := b.processor.Generate(cover, *j.accent)
	if err != nil {
		b.logger.Error("Failed to generate backdrop", zap.Error(err))
		return
	}

	if err := b.executor.SetWallpaper(ctx, path); err != nil {
		b.logger.Error("Failed to set wallpaper", zap.Error(err))
		return
	}
	b.applied = true

	b.logger.Info("Backdrop updated",
		zap.String("path", path),
		zap.String("accent", palette.Hex(*j.accent)),
		zap.Bool("artwork", cover != nil))
}

// restore puts the captured wallpaper back if a backdrop was applied
func (b *Backdrop) restore(ctx context.Context) error {
	if !b.applied {
		return nil
	}
	if b.original == "" {
		b.logger.Info("No original wallpaper to restore")
		return nil
	}

	if err := b.executor.SetWallpaper(ctx, b.original); err != nil {
		b.logger.Error("Failed to restore original wallpaper", zap.Error(err))
		return err
	}
	b.applied = false

	b.logger.Info("Original wallpaper restored", zap.String("path", b.original))
	return nil
}

// Close stops the render loop and restores the original wallpaper. Queued
// updates are discarded.
func (b *Backdrop) Close(ctx context.Context) error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	return b.restore(ctx)
}
