package monitor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisPath       = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
)

// Connector opens the session bus connection
type Connector func() (DBusClient, error)

// SurfaceFactory builds the surface rendering a player. locate returns the
// player's current page URL.
type SurfaceFactory func(locate func() string) domain.Surface

// MprisHost is the media host backed by the MPRIS players on the session
// bus. It connects lazily from Locate, tracks players as they come and go,
// and runs its setup hook whenever a different player becomes active.
type MprisHost struct {
	logger      *zap.Logger
	connect     Connector
	newSurface  SurfaceFactory
	connectWarn rate.Sometimes

	mu      sync.Mutex
	conn    DBusClient
	cancel  context.CancelFunc
	wg      sync.WaitGroup // Tracks the signal goroutine
	closed  bool
	hook    domain.SetupFunc
	players map[string]*Player // Keyed by unique bus name (:1.45)
	active  *Player
}

// NewMprisHost creates a disconnected host
func NewMprisHost(logger *zap.Logger, connect Connector, newSurface SurfaceFactory) *MprisHost {
	h := &MprisHost{
		logger:      logger,
		connect:     connect,
		newSurface:  newSurface,
		connectWarn: rate.Sometimes{Interval: 30 * time.Second},
		players:     make(map[string]*Player),
	}
	h.hook = h.announce
	return h
}

// announce is the hook the host starts with
func (h *MprisHost) announce(controller domain.Controller, _ domain.Surface) {
	if p, ok := controller.(*Player); ok {
		h.logger.Info("Now playing source activated", zap.String("player", p.Name()))
	}
}

// Locate returns the host once the session bus is reachable, connecting on
// first use. It returns nil while the bus is unavailable.
func (h *MprisHost) Locate() domain.MediaHost {
	h.mu.Lock()
	closed, connected := h.closed, h.conn != nil
	h.mu.Unlock()

	if closed {
		return nil
	}
	if connected {
		return h
	}

	if err := h.Start(); err != nil {
		h.connectWarn.Do(func() {
			h.logger.Warn("Session bus unavailable", zap.Error(err))
		})
		return nil
	}
	return h
}

// Start connects to the bus, subscribes to player signals and scans the
// players already running
func (h *MprisHost) Start() error {
	conn, err := h.connect()
	if err != nil {
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		h.closeConn(conn)
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	// Without NameOwnerChanged players are only found by the initial scan
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		h.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	h.mu.Lock()
	if h.closed || h.conn != nil {
		h.mu.Unlock()
		h.closeConn(conn)
		return nil
	}
	h.conn = conn
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.mu.Unlock()

	// Register before scanning so no player change is missed
	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	if err := h.detectExistingPlayers(); err != nil {
		h.logger.Warn("Failed to detect existing players", zap.Error(err))
	}

	h.wg.Add(1)
	go h.monitorSignals(ctx, signals)

	h.logger.Info("MPRIS host connected")
	return nil
}

// Close stops signal handling and closes the connection
func (h *MprisHost) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	cancel, conn := h.cancel, h.conn
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()

	if conn != nil {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close D-Bus connection: %w", err)
		}
	}
	h.logger.Info("MPRIS host shutdown complete")
	return nil
}

func (h *MprisHost) closeConn(conn DBusClient) {
	if err := conn.Close(); err != nil {
		h.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
	}
}

// SetupHook returns the hook run when a player becomes active
func (h *MprisHost) SetupHook() domain.SetupFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hook
}

// SetSetupHook replaces the activation hook
func (h *MprisHost) SetSetupHook(fn domain.SetupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hook = fn
}

// Current returns the active player and its surface
func (h *MprisHost) Current() (domain.Controller, domain.Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil, nil
	}
	return h.active, h.active.Surface()
}

// Players returns the well-known names of the tracked players, sorted
func (h *MprisHost) Players() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.players))
	for _, p := range h.players {
		names = append(names, p.Name())
	}
	slices.Sort(names)
	return names
}

// detectExistingPlayers queries D-Bus for the MPRIS players already running
// and activates the best one
func (h *MprisHost) detectExistingPlayers() error {
	names, err := h.client().ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	playerCount := 0
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}

		owner, err := h.client().GetNameOwner(name)
		if err != nil {
			h.logger.Warn("Failed to resolve player owner", zap.String("player", name), zap.Error(err))
			continue
		}

		p := h.addPlayer(name, owner)
		if err := h.refreshPlayer(p); err != nil {
			h.logger.Warn("Failed to fetch initial player state",
				zap.String("player", name),
				zap.Error(err))
		}
		playerCount++
		h.logger.Info("Detected MPRIS player",
			zap.String("player", name),
			zap.String("status", string(p.Status())))
	}

	h.logger.Info("Player detection complete", zap.Int("count", playerCount))

	h.mu.Lock()
	best := h.pickLocked()
	h.mu.Unlock()
	if best != nil {
		h.activate(best)
	}
	return nil
}

func (h *MprisHost) client() DBusClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

func (h *MprisHost) addPlayer(name, owner string) *Player {
	p := newPlayer(h.client(), name, owner)
	if h.newSurface != nil {
		p.surface = h.newSurface(p.PageURL)
	}

	h.mu.Lock()
	h.players[owner] = p
	h.mu.Unlock()
	return p
}

// refreshPlayer reads status and page URL for p
func (h *MprisHost) refreshPlayer(p *Player) error {
	props, err := h.client().GetAll(p.Name(), mprisPath, playerInterface)
	if err != nil {
		return fmt.Errorf("failed to get player properties: %w", err)
	}
	p.update(props)
	return nil
}

// pickLocked prefers a playing player, then any player, by name order
func (h *MprisHost) pickLocked() *Player {
	candidates := make([]*Player, 0, len(h.players))
	for _, p := range h.players {
		candidates = append(candidates, p)
	}
	slices.SortFunc(candidates, func(a, b *Player) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, p := range candidates {
		if p.Status() == domain.StatusPlaying {
			return p
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}

// activate makes p the active player and runs the setup hook outside the
// lock
func (h *MprisHost) activate(p *Player) {
	h.mu.Lock()
	if h.active == p {
		h.mu.Unlock()
		return
	}
	h.active = p
	hook := h.hook
	h.mu.Unlock()

	h.logger.Info("Active player changed", zap.String("player", p.Name()))
	if hook != nil {
		hook(p, p.Surface())
	}
}

// monitorSignals listens for D-Bus signals and processes them
func (h *MprisHost) monitorSignals(ctx context.Context, signals <-chan *dbus.Signal) {
	defer h.wg.Done()

	h.logger.Debug("Signal monitoring goroutine started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Signal monitoring goroutine stopped")
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig == nil {
				continue
			}
			if sig.Name == "org.freedesktop.DBus.NameOwnerChanged" {
				h.handleNameOwnerChanged(sig)
			} else {
				h.handleSignal(sig)
			}
		}
	}
}

// handleNameOwnerChanged tracks players appearing, vanishing and changing
// owner
func (h *MprisHost) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, mprisPrefix) {
		return
	}
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	switch {
	case oldOwner == "" && newOwner != "":
		p := h.addPlayer(name, newOwner)
		h.logger.Info("New MPRIS player detected",
			zap.String("player", name),
			zap.String("unique", newOwner))

		if err := h.refreshPlayer(p); err != nil {
			h.logger.Warn("Failed to fetch state of new player",
				zap.String("player", name),
				zap.Error(err))
		}

		h.mu.Lock()
		takeOver := h.active == nil || (p.Status() == domain.StatusPlaying && h.active.Status() != domain.StatusPlaying)
		h.mu.Unlock()
		if takeOver {
			h.activate(p)
		}

	case oldOwner != "" && newOwner == "":
		h.removePlayer(name, oldOwner)

	case oldOwner != "" && newOwner != "":
		h.mu.Lock()
		if p, ok := h.players[oldOwner]; ok {
			delete(h.players, oldOwner)
			p.mu.Lock()
			p.owner = newOwner
			p.mu.Unlock()
			h.players[newOwner] = p
		}
		h.mu.Unlock()

		h.logger.Debug("MPRIS player ownership changed",
			zap.String("player", name),
			zap.String("oldUnique", oldOwner),
			zap.String("newUnique", newOwner))
	}
}

// removePlayer forgets a vanished player. If it was active another player
// takes over; with none left the bound source is told its playback ended so
// the published state clears.
func (h *MprisHost) removePlayer(name, owner string) {
	h.mu.Lock()
	p, ok := h.players[owner]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.players, owner)
	p.markGone()

	var next *Player
	wasActive := h.active == p
	if wasActive {
		h.active = nil
		next = h.pickLocked()
	}
	h.mu.Unlock()

	h.logger.Info("MPRIS player removed",
		zap.String("player", name),
		zap.String("unique", owner))

	if next != nil {
		h.activate(next)
		return
	}
	p.dispatch(domain.EventPlaybackStateChange)
}

// handleSignal turns PropertiesChanged on the Player interface into
// controller events
func (h *MprisHost) handleSignal(sig *dbus.Signal) {
	// PropertiesChanged carries the interface name, the changed properties
	// and the invalidated property names
	if sig.Name != "org.freedesktop.DBus.Properties.PropertiesChanged" || len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != playerInterface {
		return
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	h.mu.Lock()
	p := h.players[sig.Sender]
	h.mu.Unlock()
	if p == nil {
		h.logger.Debug("PropertiesChanged from unknown sender", zap.String("sender", sig.Sender))
		return
	}

	_, hasMetadata := changed["Metadata"]
	_, hasStatus := changed["PlaybackStatus"]
	if !hasMetadata && !hasStatus {
		return
	}

	statusChanged := p.update(changed)

	h.logger.Debug("Player properties changed",
		zap.String("player", p.Name()),
		zap.Bool("metadata", hasMetadata),
		zap.String("status", string(p.Status())))

	if statusChanged && p.Status() == domain.StatusPlaying {
		h.activate(p)
	}
	if hasMetadata {
		p.dispatch(domain.EventMetadataChange)
	}
	if statusChanged {
		p.dispatch(domain.EventPlaybackStateChange)
	}
}
