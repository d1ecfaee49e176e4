package sink

import (
	"sync"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Snapshot is the published state at one point in time
type Snapshot struct {
	Cover  string
	Accent *domain.Color
	// Active is set while a cover is shown
	Active  bool
	Updated time.Time
}

// State keeps the latest published state in memory and streams it to
// subscribers. Slow subscribers only ever see the newest snapshot.
type State struct {
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	current  Snapshot
	subs     map[int]chan Snapshot
	nextID   int
	dropWarn rate.Sometimes
}

// NewState creates an empty state sink
func NewState(logger *zap.Logger) *State {
	return &State{
		logger:   logger,
		now:      time.Now,
		subs:     make(map[int]chan Snapshot),
		dropWarn: rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Snapshot returns the current state
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySnapshot(s.current)
}

// Subscribe returns a channel that receives the current snapshot followed by
// every change, and a cancel func that closes it
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	ch <- copySnapshot(s.current)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// PublishCover implements domain.Sink
func (s *State) PublishCover(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Cover = url
	s.current.Active = url != ""
	s.broadcastLocked()
	return nil
}

// PublishAccent implements domain.Sink
func (s *State) PublishAccent(c *domain.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c == nil {
		s.current.Accent = nil
	} else {
		accent := *c
		s.current.Accent = &accent
	}
	s.broadcastLocked()
	return nil
}

func (s *State) broadcastLocked() {
	s.current.Updated = s.now()

	for id, ch := range s.subs {
		snap := copySnapshot(s.current)
		select {
		case ch <- snap:
			continue
		default:
		}

		// Replace the unread snapshot with the newer one
		select {
		case <-ch:
		default:
		}
		ch <- snap

		s.dropWarn.Do(func() {
			s.logger.Warn("State subscriber is lagging, dropped a stale snapshot", zap.Int("subscriber", id))
		})
	}
}

func copySnapshot(snap Snapshot) Snapshot {
	if snap.Accent != nil {
		accent := *snap.Accent
		snap.Accent = &accent
	}
	return snap
}
