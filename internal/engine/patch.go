package engine

import (
	"sync"

	"github.com/genricoloni/musicbar/internal/domain"
)

// HookPatch decorates a media host's setup hook so every newly active
// source is also attached to the engine. It installs at most once and
// Restore puts back the exact function it replaced.
type HookPatch struct {
	mu        sync.Mutex
	host      domain.MediaHost
	original  domain.SetupFunc
	installed bool
}

// Install wraps host's setup hook with attach, then attaches to the source
// the host already has active. It returns false when the host exposes no
// hook yet.
func (p *HookPatch) Install(host domain.MediaHost, attach domain.SetupFunc) bool {
	p.mu.Lock()
	if p.installed {
		p.mu.Unlock()
		return true
	}

	original := host.SetupHook()
	if original == nil {
		p.mu.Unlock()
		return false
	}

	host.SetSetupHook(func(controller domain.Controller, surface domain.Surface) {
		attach(controller, surface)
		original(controller, surface)
	})
	p.host = host
	p.original = original
	p.installed = true
	p.mu.Unlock()

	if controller, surface := host.Current(); controller != nil {
		attach(controller, surface)
	}
	return true
}

// Restore reinstates the original hook
func (p *HookPatch) Restore() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.installed {
		return
	}
	p.host.SetSetupHook(p.original)
	p.host, p.original = nil, nil
	p.installed = false
}

// Installed reports whether the hook is currently wrapped
func (p *HookPatch) Installed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}
