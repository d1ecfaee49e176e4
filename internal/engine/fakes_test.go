package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
)

// recordingSink keeps every publication in order
type recordingSink struct {
	mu      sync.Mutex
	covers  []string
	accents []*domain.Color
}

func (s *recordingSink) PublishCover(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.covers = append(s.covers, url)
	return nil
}

func (s *recordingSink) PublishAccent(c *domain.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != nil {
		copied := *c
		c = &copied
	}
	s.accents = append(s.accents, c)
	return nil
}

func (s *recordingSink) Covers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.covers...)
}

func (s *recordingSink) Accents() []*domain.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Color(nil), s.accents...)
}

// stubResolver returns url, or what override returns for a given call
type stubResolver struct {
	mu       sync.Mutex
	url      string
	calls    int
	override func(call int) string
}

func (r *stubResolver) Resolve(ctx context.Context, c domain.Controller, s domain.Surface) string {
	r.mu.Lock()
	r.calls++
	call, url, override := r.calls, r.url, r.override
	r.mu.Unlock()

	if override != nil {
		return override(call)
	}
	return url
}

func (r *stubResolver) Set(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = url
}

func (r *stubResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fixedSampler answers immediately
type fixedSampler struct {
	color *domain.Color
	err   error
}

func (s fixedSampler) Sample(context.Context, string) (*domain.Color, error) {
	return s.color, s.err
}

// gatedSampler blocks each URL until the test releases it
type gatedSampler struct {
	started chan string
	gates   map[string]chan *domain.Color
}

func newGatedSampler(urls ...string) *gatedSampler {
	s := &gatedSampler{
		started: make(chan string, len(urls)*4),
		gates:   make(map[string]chan *domain.Color, len(urls)),
	}
	for _, u := range urls {
		s.gates[u] = make(chan *domain.Color, 1)
	}
	return s
}

func (s *gatedSampler) Sample(ctx context.Context, url string) (*domain.Color, error) {
	s.started <- url
	select {
	case c := <-s.gates[url]:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *gatedSampler) Release(url string, c *domain.Color) {
	s.gates[url] <- c
}

// fakeController dispatches events to registered listeners
type fakeController struct {
	mu        sync.Mutex
	name      string
	listeners map[domain.EventType][]domain.EventListener
	added     int
	removed   int
}

func newFakeController(name string) *fakeController {
	return &fakeController{name: name, listeners: make(map[domain.EventType][]domain.EventListener)}
}

func (c *fakeController) Metadata() (domain.Metadata, error) {
	return domain.Metadata{"title": c.name}, nil
}

func (c *fakeController) AddEventListener(t domain.EventType, l domain.EventListener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added++
	for _, existing := range c.listeners[t] {
		if existing == l {
			return nil
		}
	}
	c.listeners[t] = append(c.listeners[t], l)
	return nil
}

func (c *fakeController) RemoveEventListener(t domain.EventType, l domain.EventListener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed++
	kept := c.listeners[t][:0]
	for _, existing := range c.listeners[t] {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	c.listeners[t] = kept
	return nil
}

func (c *fakeController) Emit(t domain.EventType) {
	c.mu.Lock()
	listeners := append([]domain.EventListener(nil), c.listeners[t]...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.HandleEvent(domain.Event{Type: t, Target: c})
	}
}

func (c *fakeController) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ls := range c.listeners {
		n += len(ls)
	}
	return n
}

// fakeHost is a media host with a replaceable setup hook
type fakeHost struct {
	mu      sync.Mutex
	hook    domain.SetupFunc
	current domain.Controller
	surface domain.Surface
}

func (h *fakeHost) SetupHook() domain.SetupFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hook
}

func (h *fakeHost) SetSetupHook(fn domain.SetupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hook = fn
}

func (h *fakeHost) Current() (domain.Controller, domain.Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.surface
}

// Activate makes c current and runs the installed hook like the host would
func (h *fakeHost) Activate(c domain.Controller, s domain.Surface) {
	h.mu.Lock()
	h.current, h.surface = c, s
	hook := h.hook
	h.mu.Unlock()

	if hook != nil {
		hook(c, s)
	}
}

// fakeLocator returns host once it has been asked readyAfter times
type fakeLocator struct {
	mu         sync.Mutex
	host       domain.MediaHost
	readyAfter int
	calls      int
}

func (l *fakeLocator) Locate() domain.MediaHost {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.host == nil || l.calls <= l.readyAfter {
		return nil
	}
	return l.host
}

func (l *fakeLocator) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// testConfig provides fast intervals
type testConfig struct {
	domain.Config
	poll      time.Duration
	discovery time.Duration
}

func (c testConfig) GetPollInterval() time.Duration      { return c.poll }
func (c testConfig) GetDiscoveryInterval() time.Duration { return c.discovery }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
