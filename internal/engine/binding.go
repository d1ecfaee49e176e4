package engine

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
)

// DefaultPollInterval is the fallback refresh period while bound
const DefaultPollInterval = 1800 * time.Millisecond

// Events a bound controller is subscribed to
var watchedEvents = []domain.EventType{
	domain.EventMetadataChange,
	domain.EventPlaybackStateChange,
}

// Binding keeps the pipeline attached to at most one controller, refreshing
// on controller events and on a fallback poll.
type Binding struct {
	ctx      context.Context
	logger   *zap.Logger
	pipeline *Pipeline
	interval time.Duration

	mu         sync.Mutex
	controller domain.Controller
	surface    domain.Surface
	stop       chan struct{}
	done       chan struct{}
	closed     bool
}

// NewBinding creates an unbound binding. ctx bounds the poll goroutine and
// is passed on to every refresh.
func NewBinding(ctx context.Context, logger *zap.Logger, pipeline *Pipeline, interval time.Duration) *Binding {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Binding{
		ctx:      ctx,
		logger:   logger,
		pipeline: pipeline,
		interval: interval,
	}
}

// Attach binds controller and surface, replacing any previous binding.
// It is a no-op for a nil controller, the controller already bound, or once
// the binding is closed or its context is done.
func (b *Binding) Attach(controller domain.Controller, surface domain.Surface) {
	if controller == nil {
		return
	}

	b.mu.Lock()
	if b.closed || b.ctx.Err() != nil {
		b.mu.Unlock()
		b.logger.Debug("Ignoring attach on a closed binding")
		return
	}
	if b.controller == controller {
		b.mu.Unlock()
		return
	}

	wait := b.detachLocked()

	for _, t := range watchedEvents {
		if err := controller.AddEventListener(t, b); err != nil {
			b.logger.Warn("Failed to subscribe to controller events",
				zap.String("event", string(t)),
				zap.Error(err))
		}
	}
	b.controller = controller
	b.surface = surface
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.poll(b.stop, b.done)
	b.mu.Unlock()

	wait()

	b.logger.Debug("Controller attached")
	b.refresh(false)
}

// Detach unsubscribes from the bound controller and stops polling. It
// returns once the poll goroutine has exited.
func (b *Binding) Detach() {
	b.mu.Lock()
	wait := b.detachLocked()
	b.mu.Unlock()

	wait()
}

// Close detaches and makes every later Attach a no-op
func (b *Binding) Close() {
	b.mu.Lock()
	b.closed = true
	wait := b.detachLocked()
	b.mu.Unlock()

	wait()
}

// detachLocked tears the binding down and returns a function waiting for
// the poll goroutine. The caller must release mu before calling it.
func (b *Binding) detachLocked() func() {
	if b.controller == nil {
		return func() {}
	}

	for _, t := range watchedEvents {
		if err := b.controller.RemoveEventListener(t, b); err != nil {
			b.logger.Warn("Failed to unsubscribe from controller events",
				zap.String("event", string(t)),
				zap.Error(err))
		}
	}

	close(b.stop)
	done := b.done
	b.controller, b.surface = nil, nil
	b.stop, b.done = nil, nil

	b.logger.Debug("Controller detached")
	return func() { <-done }
}

// HandleEvent refreshes on events coming from the bound controller. An
// event without a target is attributed to the bound controller.
func (b *Binding) HandleEvent(e domain.Event) {
	if e.Type != domain.EventMetadataChange && e.Type != domain.EventPlaybackStateChange {
		return
	}

	b.mu.Lock()
	bound := b.controller
	b.mu.Unlock()

	if bound == nil {
		return
	}
	if e.Target != nil && e.Target != bound {
		b.logger.Debug("Ignoring event from replaced controller", zap.String("event", string(e.Type)))
		return
	}
	b.refresh(false)
}

func (b *Binding) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.refresh(true)
		}
	}
}

// refresh runs the pipeline against whatever is bound right now. Polling
// additionally requires a surface.
func (b *Binding) refresh(polling bool) {
	b.mu.Lock()
	controller, surface := b.controller, b.surface
	b.mu.Unlock()

	if controller == nil || (polling && surface == nil) {
		return
	}
	b.pipeline.Refresh(b.ctx, controller, surface)
}

// Bound returns the bound controller, nil when unbound
func (b *Binding) Bound() domain.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.controller
}

// Polling reports whether the poll goroutine is running
func (b *Binding) Polling() bool {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
