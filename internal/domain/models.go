package domain

import (
	"strconv"
	"strings"
)

// PlayerStatus represents the current state of the media player
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "Stopped"
)

// EventType names a controller event the binding subscribes to
type EventType string

const (
	// EventMetadataChange fires when the track metadata changes
	EventMetadataChange EventType = "metadatachange"
	// EventPlaybackStateChange fires when playback starts, pauses or stops
	EventPlaybackStateChange EventType = "playbackstatechange"
)

// Event is delivered to listeners registered on a Controller
type Event struct {
	Type EventType
	// Target is the controller that emitted the event. A nil Target is
	// treated as coming from whichever controller is currently bound.
	Target Controller
}

// Color is an RGB triple with channels in [0,255]
type Color struct {
	R float64
	G float64
	B float64
}

// Metadata is the untrusted, loosely typed metadata object exposed by a
// controller. Values follow JSON conventions: strings, numbers, nested
// maps and slices.
type Metadata map[string]any

// String returns the trimmed string stored under key, or "" when the value
// is missing or not a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, ok := m[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// ArtworkCandidate is one entry of a metadata-provided artwork list
type ArtworkCandidate struct {
	// Src is the (possibly relative) image URL
	Src string
	// Width and Height are only meaningful when HasDimensions is set
	Width         float64
	Height        float64
	HasDimensions bool
	// Sizes holds whitespace-separated "WxH" tokens, as in MediaImage.sizes
	Sizes string
}

// Area returns the candidate's pixel area: width*height when both numbers
// are known, otherwise the largest area among the "WxH" tokens in Sizes.
func (c ArtworkCandidate) Area() float64 {
	if c.HasDimensions {
		return c.Width * c.Height
	}

	best := 0.0
	for _, chunk := range strings.Fields(c.Sizes) {
		w, h, found := strings.Cut(strings.ToLower(chunk), "x")
		if !found {
			continue
		}
		// Unparsable halves count as zero
		wf, _ := strconv.ParseFloat(w, 64)
		hf, _ := strconv.ParseFloat(h, 64)
		if area := wf * hf; area > best {
			best = area
		}
	}
	return best
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}
