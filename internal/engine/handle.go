package engine

import "sync"

// Handle is the teardown surface of a running engine
type Handle interface {
	Destroy()
}

var (
	handleMu sync.Mutex
	handle   Handle
)

// Install makes h the process-wide handle. A previously installed handle is
// destroyed first, so a newly booted engine displaces the old one.
func Install(h Handle) {
	handleMu.Lock()
	prev := handle
	handle = nil
	handleMu.Unlock()

	if prev != nil && prev != h {
		prev.Destroy()
	}

	handleMu.Lock()
	handle = h
	handleMu.Unlock()
}

// Current returns the installed handle, nil if none
func Current() Handle {
	handleMu.Lock()
	defer handleMu.Unlock()
	return handle
}

// Uninstall removes h if it is still the installed handle
func Uninstall(h Handle) {
	handleMu.Lock()
	defer handleMu.Unlock()
	if handle == h {
		handle = nil
	}
}
