package domain

import (
	"context"
	"errors"
	"time"

	"github.com/genricoloni/musicbar/internal/dom"
)

var (
	// ErrNoDocument is returned by surfaces that have nothing to render yet
	ErrNoDocument = errors.New("surface has no document")
	// ErrUnknownEvent is returned when subscribing to an unsupported event type
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrNotImage is returned when artwork bytes cannot be decoded
	ErrNotImage = errors.New("failed to decode image")
)

// Controller is a now-playing media controller owned by the media host.
// Bindings and events compare controllers by identity, so implementations
// should be pointers.
//
//go:generate mockgen -destination=mocks/domain_mock.go -package=mocks github.com/genricoloni/musicbar/internal/domain Sink,Controller
type Controller interface {
	// Metadata returns the current metadata object, or nil when the
	// controller has nothing to report
	Metadata() (Metadata, error)

	// AddEventListener registers l for events of type t. Registering the
	// same listener twice is a no-op.
	AddEventListener(t EventType, l EventListener) error

	// RemoveEventListener unregisters l for events of type t
	RemoveEventListener(t EventType, l EventListener) error
}

// EventListener receives controller events.
// Implementations are compared by identity, so they should be pointers.
type EventListener interface {
	HandleEvent(e Event)
}

// Surface is the page that renders a now-playing source
type Surface interface {
	// Location returns the URL of the page currently shown, if known
	Location() string

	// Document returns a parsed snapshot of the page
	Document(ctx context.Context) (*dom.Document, error)
}

// SetupFunc is the host hook invoked whenever a new now-playing source
// becomes active
type SetupFunc func(controller Controller, surface Surface)

// MediaHost is the external collaborator that owns the controllers
type MediaHost interface {
	// SetupHook returns the currently installed setup hook, nil if the
	// host is not ready yet
	SetupHook() SetupFunc

	// SetSetupHook replaces the setup hook
	SetSetupHook(fn SetupFunc)

	// Current returns the controller and surface already active, if any
	Current() (Controller, Surface)
}

// HostLocator discovers the media host. It returns nil until the host is
// available.
type HostLocator interface {
	Locate() MediaHost
}

// Sink is the presentation layer receiving computed state
type Sink interface {
	// PublishCover reflects url as the current cover; "" clears it
	PublishCover(url string) error

	// PublishAccent reflects c as the current accent; nil clears it
	PublishAccent(c *Color) error
}

// Resolver finds the best artwork URL for a now-playing source
type Resolver interface {
	// Resolve returns an absolute artwork URL or "" when none is found
	Resolve(ctx context.Context, controller Controller, surface Surface) string
}

// Sampler derives a representative colour from an artwork URL
type Sampler interface {
	// Sample returns nil when the artwork could not be sampled
	Sample(ctx context.Context, url string) (*Color, error)
}

// Fetcher defines the interface for retrieving remote or local resources
type Fetcher interface {
	// Fetch downloads or reads data from a URL or local path
	// Returns the raw bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Processor renders a desktop backdrop from artwork and an accent colour
type Processor interface {
	// Generate creates a backdrop and returns the file path it was written to.
	// cover may be nil, in which case only the accent is used.
	Generate(cover []byte, accent Color) (string, error)
}

// Executor defines the interface for executing system commands
type Executor interface {
	// SetWallpaper sets the desktop wallpaper to the specified image path
	SetWallpaper(ctx context.Context, imagePath string) error

	// GetCurrentWallpaper retrieves the path to the currently set wallpaper
	// Returns an error if the operation is not supported or fails
	GetCurrentWallpaper(ctx context.Context) (string, error)
}

// Config defines the interface for application configuration
type Config interface {
	// GetSamplerMode returns the colour sampling strategy ("weighted" or "kmeans")
	GetSamplerMode() string

	// GetOutputDir returns the directory published files are written to
	GetOutputDir() string

	// GetSinks returns the enabled presentation sinks
	GetSinks() []string

	// GetPollInterval returns the fallback refresh interval while bound
	GetPollInterval() time.Duration

	// GetDiscoveryInterval returns the delay between media host lookups
	GetDiscoveryInterval() time.Duration

	// GetSelectorsPath returns an optional selector table override
	GetSelectorsPath() string

	// GetPageTTL returns how long a fetched page snapshot stays fresh
	GetPageTTL() time.Duration
}
