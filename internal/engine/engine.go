package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultDiscoveryInterval is the delay between media host lookups
const DefaultDiscoveryInterval = 250 * time.Millisecond

// Failed lookups between two "still waiting" warnings
const discoveryWarnEvery = 20

// ErrDestroyed is returned when initializing an engine that was torn down
var ErrDestroyed = errors.New("engine destroyed")

// Engine keeps the cover and accent of the active now-playing source
// published. It discovers the media host, hooks into its setup function and
// drives a Binding for whatever source the host activates.
type Engine struct {
	id       string
	logger   *zap.Logger
	cfg      domain.Config
	locator  domain.HostLocator
	pipeline *Pipeline
	patch    HookPatch

	mu        sync.Mutex
	binding   *Binding
	cancel    context.CancelFunc
	done      chan struct{} // Closed when discovery exits
	started   bool
	destroyed bool
}

// NewEngine creates an engine. Nothing runs until Init.
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	locator domain.HostLocator,
	resolver domain.Resolver,
	sampler domain.Sampler,
	sink domain.Sink,
) *Engine {
	id := uuid.NewString()
	logger = logger.With(zap.String("instance", id))

	return &Engine{
		id:       id,
		logger:   logger,
		cfg:      cfg,
		locator:  locator,
		pipeline: NewPipeline(logger, resolver, sampler, sink),
	}
}

// ID returns the instance id used in logs
func (e *Engine) ID() string {
	return e.id
}

// Init installs the engine as the process-wide handle, destroying any
// previous instance, and starts looking for the media host. It returns
// immediately; ctx only bounds the call itself.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrDestroyed
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	Install(e)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		cancel()
		return ErrDestroyed
	}
	e.binding = NewBinding(runCtx, e.logger, e.pipeline, e.cfg.GetPollInterval())
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	e.logger.Info("Engine starting")
	go e.discover(runCtx, done)
	return nil
}

// discover polls the locator until a host with a setup hook shows up and
// patches it. It never gives up on its own.
func (e *Engine) discover(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	interval := e.cfg.GetDiscoveryInterval()
	if interval <= 0 {
		interval = DefaultDiscoveryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	warn := rate.Sometimes{Every: discoveryWarnEvery}
	attempts := 0

	for {
		if e.tryPatch() {
			e.logger.Info("Media host hooked", zap.Int("attempts", attempts+1))
			return
		}
		attempts++
		warn.Do(func() {
			e.logger.Warn("Media host not available yet, retrying",
				zap.Int("attempts", attempts),
				zap.Duration("interval", interval))
		})

		select {
		case <-ctx.Done():
			e.logger.Debug("Discovery stopped", zap.Int("attempts", attempts))
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) tryPatch() bool {
	host := e.locator.Locate()
	if host == nil {
		return false
	}
	return e.patch.Install(host, e.binding.Attach)
}

// Destroy stops discovery, restores the host's original hook, closes the
// binding and clears the published state. It is safe to call more than
// once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	cancel, done, binding := e.cancel, e.done, e.binding
	e.mu.Unlock()

	e.logger.Info("Engine stopping")

	if cancel != nil {
		cancel()
		<-done
	}
	// Unhook first so the host stops routing new sources here, then close
	// the binding for hooks it already read
	e.patch.Restore()
	if binding != nil {
		binding.Close()
	}

	if err := e.pipeline.Close(); err != nil {
		e.logger.Warn("Failed to clear published state", zap.Error(err))
	}
	e.pipeline.Wait()

	Uninstall(e)
	e.logger.Info("Engine stopped")
}

// Stop adapts Destroy to an fx stop hook
func (e *Engine) Stop(context.Context) error {
	e.Destroy()
	return nil
}

// Binding returns the source binding, nil before Init
func (e *Engine) Binding() *Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.binding
}

// Hooked reports whether the host's setup hook is currently wrapped
func (e *Engine) Hooked() bool {
	return e.patch.Installed()
}
