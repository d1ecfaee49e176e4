package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
)

type stubFetcher struct {
	data map[string][]byte
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if d, ok := f.data[url]; ok {
		return d, nil
	}
	return nil, errors.New("404")
}

type render struct {
	cover  []byte
	accent domain.Color
}

type recordingProcessor struct {
	mu      sync.Mutex
	renders []render
	err     error
}

func (p *recordingProcessor) Generate(cover []byte, accent domain.Color) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.renders = append(p.renders, render{cover: cover, accent: accent})
	return "/tmp/musicbar/musicbar_backdrop.jpg", nil
}

func (p *recordingProcessor) Renders() []render {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]render(nil), p.renders...)
}

type recordingExecutor struct {
	mu       sync.Mutex
	current  string
	queryErr error
	set      []string
}

func (e *recordingExecutor) SetWallpaper(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set = append(e.set, path)
	e.current = path
	return nil
}

func (e *recordingExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.queryErr
}

func (e *recordingExecutor) Set() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.set...)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestBackdrop(t *testing.T, exec *recordingExecutor, proc *recordingProcessor) *Backdrop {
	t.Helper()
	fetch := &stubFetcher{data: map[string][]byte{"https://example.com/a.jpg": []byte("jpeg")}}
	b := NewBackdrop(zap.NewNop(), fetch, proc, exec)
	b.debounce = 20 * time.Millisecond
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBackdrop_RendersLatestAndRestores(t *testing.T) {
	exec := &recordingExecutor{current: "/home/me/lake.jpg"}
	proc := &recordingProcessor{}
	b := newTestBackdrop(t, exec, proc)

	_ = b.PublishCover("https://example.com/a.jpg")
	_ = b.PublishAccent(&domain.Color{R: 1})
	_ = b.PublishAccent(&domain.Color{R: 2})
	_ = b.PublishAccent(&domain.Color{R: 3})

	waitUntil(t, func() bool { return len(exec.Set()) == 1 })

	renders := proc.Renders()
	if len(renders) != 1 {
		t.Fatalf("Expected a single debounced render, got %d", len(renders))
	}
	if renders[0].accent.R != 3 || string(renders[0].cover) != "jpeg" {
		t.Errorf("Expected the last accent with artwork, got %+v", renders[0])
	}

	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Unexpected close error: %v", err)
	}
	set := exec.Set()
	if set[len(set)-1] != "/home/me/lake.jpg" {
		t.Errorf("Expected original wallpaper restored, got %v", set)
	}

	// Second close is a no-op
	if err := b.Close(context.Background()); err != nil {
		t.Errorf("Unexpected error on second close: %v", err)
	}
	if len(exec.Set()) != len(set) {
		t.Error("Second close should not touch the wallpaper")
	}
}

func TestBackdrop_MissingArtworkStillRenders(t *testing.T) {
	exec := &recordingExecutor{}
	proc := &recordingProcessor{}
	b := newTestBackdrop(t, exec, proc)
	defer b.Close(context.Background())

	_ = b.PublishCover("https://example.com/missing.jpg")
	_ = b.PublishAccent(&domain.Color{G: 5})

	waitUntil(t, func() bool { return len(proc.Renders()) == 1 })
	if proc.Renders()[0].cover != nil {
		t.Error("Expected a render without artwork")
	}
}

func TestBackdrop_ClearedAccentRestores(t *testing.T) {
	exec := &recordingExecutor{current: "/home/me/lake.jpg"}
	proc := &recordingProcessor{}
	b := newTestBackdrop(t, exec, proc)

	_ = b.PublishAccent(&domain.Color{B: 9})
	waitUntil(t, func() bool { return len(exec.Set()) == 1 })

	_ = b.PublishCover("")
	_ = b.PublishAccent(nil)
	waitUntil(t, func() bool { return len(exec.Set()) == 2 })
	if got := exec.Set()[1]; got != "/home/me/lake.jpg" {
		t.Errorf("Expected restore, got %q", got)
	}

	// Already restored, close must not set it again
	if err := b.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.Set()) != 2 {
		t.Errorf("Unexpected wallpaper changes: %v", exec.Set())
	}
}

func TestBackdrop_NothingAppliedNothingRestored(t *testing.T) {
	exec := &recordingExecutor{current: "/home/me/lake.jpg"}
	proc := &recordingProcessor{err: errors.New("render failed")}
	b := newTestBackdrop(t, exec, proc)

	_ = b.PublishAccent(&domain.Color{R: 1})
	time.Sleep(60 * time.Millisecond)

	if err := b.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.Set()) != 0 {
		t.Errorf("Expected no wallpaper changes, got %v", exec.Set())
	}
}

func TestBackdrop_CloseWithoutStart(t *testing.T) {
	b := NewBackdrop(zap.NewNop(), &stubFetcher{}, &recordingProcessor{}, &recordingExecutor{})
	if err := b.Close(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
