package monitor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/godbus/dbus/v5"
)

// ErrPlayerGone is returned by players that have left the bus
var ErrPlayerGone = errors.New("player left the bus")

// Player is an MPRIS media player exposed as a domain.Controller
type Player struct {
	client  DBusClient
	name    string // Well-known name (org.mpris.MediaPlayer2.spotify)
	surface domain.Surface

	mu        sync.Mutex
	owner     string // Unique bus name (:1.45)
	status    domain.PlayerStatus
	pageURL   string
	gone      bool
	listeners map[domain.EventType][]domain.EventListener
}

func newPlayer(client DBusClient, name, owner string) *Player {
	return &Player{
		client:    client,
		name:      name,
		owner:     owner,
		status:    domain.StatusStopped,
		listeners: make(map[domain.EventType][]domain.EventListener),
	}
}

// Name returns the player's well-known bus name
func (p *Player) Name() string {
	return p.name
}

// Surface returns the page rendering this player
func (p *Player) Surface() domain.Surface {
	return p.surface
}

// Status returns the last known playback status
func (p *Player) Status() domain.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// PageURL returns the last xesam:url reported, "" once the player is gone
func (p *Player) PageURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone {
		return ""
	}
	return p.pageURL
}

// Metadata reads the player's current metadata over D-Bus
func (p *Player) Metadata() (domain.Metadata, error) {
	p.mu.Lock()
	gone := p.gone
	p.mu.Unlock()
	if gone {
		return nil, ErrPlayerGone
	}

	props, err := p.client.GetAll(p.name, mprisPath, playerInterface)
	if err != nil {
		return nil, fmt.Errorf("failed to read player properties: %w", err)
	}
	p.update(props)

	// SAFE CAST: players with nothing loaded may omit Metadata entirely
	raw, ok := props["Metadata"].Value().(map[string]dbus.Variant)
	if !ok {
		return nil, nil
	}
	return parseMetadata(raw, p.Status()), nil
}

// AddEventListener registers l for metadatachange or playbackstatechange
func (p *Player) AddEventListener(t domain.EventType, l domain.EventListener) error {
	if !supportedEvent(t) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.listeners[t] {
		if existing == l {
			return nil
		}
	}
	p.listeners[t] = append(p.listeners[t], l)
	return nil
}

// RemoveEventListener unregisters l
func (p *Player) RemoveEventListener(t domain.EventType, l domain.EventListener) error {
	if !supportedEvent(t) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.listeners[t][:0]
	for _, existing := range p.listeners[t] {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	p.listeners[t] = kept
	return nil
}

// dispatch delivers an event to a snapshot of the listeners, outside the
// lock so listeners may unsubscribe from their handler
func (p *Player) dispatch(t domain.EventType) {
	p.mu.Lock()
	listeners := make([]domain.EventListener, len(p.listeners[t]))
	copy(listeners, p.listeners[t])
	p.mu.Unlock()

	for _, l := range listeners {
		l.HandleEvent(domain.Event{Type: t, Target: p})
	}
}

// update caches playback status and page URL from a Player property map
// and reports whether the status changed
func (p *Player) update(props map[string]dbus.Variant) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := false
	if v, ok := props["PlaybackStatus"]; ok {
		if s, ok := v.Value().(string); ok {
			status := parseStatus(s)
			changed = status != p.status
			p.status = status
		}
	}
	if v, ok := props["Metadata"]; ok {
		if meta, ok := v.Value().(map[string]dbus.Variant); ok {
			p.pageURL = variantString(meta["xesam:url"])
		}
	}
	return changed
}

// markGone detaches the player from the bus; later Metadata calls fail and
// its page URL is forgotten
func (p *Player) markGone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gone = true
	p.status = domain.StatusStopped
}

func supportedEvent(t domain.EventType) bool {
	return t == domain.EventMetadataChange || t == domain.EventPlaybackStateChange
}

func parseStatus(s string) domain.PlayerStatus {
	switch s {
	case "Playing":
		return domain.StatusPlaying
	case "Paused":
		return domain.StatusPaused
	default:
		return domain.StatusStopped
	}
}

// parseMetadata maps MPRIS metadata onto the loose metadata object the
// resolver understands
func parseMetadata(metadata map[string]dbus.Variant, status domain.PlayerStatus) domain.Metadata {
	meta := domain.Metadata{"status": string(status)}

	if title := variantString(metadata["xesam:title"]); title != "" {
		meta["title"] = title
	}
	if album := variantString(metadata["xesam:album"]); album != "" {
		meta["album"] = album
	}
	if page := variantString(metadata["xesam:url"]); page != "" {
		meta["url"] = page
	}
	if art := variantString(metadata["mpris:artUrl"]); art != "" {
		meta["artworkUrl"] = art
	}

	// MPRIS declares xesam:artist a list; some players send a plain string
	if v, ok := metadata["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			if len(artists) > 0 {
				meta["artist"] = artists[0]
			}
		case string:
			meta["artist"] = artists
		}
	}

	if v, ok := metadata["mpris:trackid"]; ok {
		switch id := v.Value().(type) {
		case dbus.ObjectPath:
			meta["trackId"] = string(id)
		case string:
			meta["trackId"] = id
		}
	}
	if v, ok := metadata["mpris:length"]; ok {
		switch n := v.Value().(type) {
		case int64:
			meta["length"] = n
		case uint64:
			meta["length"] = int64(n)
		}
	}
	return meta
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}
