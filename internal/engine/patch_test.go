package engine

import (
	"reflect"
	"sync"
	"testing"

	"github.com/genricoloni/musicbar/internal/domain"
)

type attachRecorder struct {
	mu       sync.Mutex
	attached []domain.Controller
}

func (r *attachRecorder) Attach(c domain.Controller, s domain.Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = append(r.attached, c)
}

func (r *attachRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attached)
}

func sameFunc(a, b domain.SetupFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func TestHookPatch_InstallAndRestore(t *testing.T) {
	originalCalls := 0
	original := domain.SetupFunc(func(domain.Controller, domain.Surface) { originalCalls++ })

	host := &fakeHost{hook: original}
	rec := &attachRecorder{}
	var patch HookPatch

	if !patch.Install(host, rec.Attach) {
		t.Fatal("expected install to succeed")
	}
	if sameFunc(host.SetupHook(), original) {
		t.Fatal("expected the hook to be wrapped")
	}

	host.Activate(newFakeController("a"), nil)
	if rec.Count() != 1 || originalCalls != 1 {
		t.Errorf("expected wrapper to attach and call original, got attach=%d original=%d", rec.Count(), originalCalls)
	}

	// A second install must not wrap twice
	if !patch.Install(host, rec.Attach) {
		t.Fatal("expected repeated install to report success")
	}
	host.Activate(newFakeController("b"), nil)
	if rec.Count() != 2 || originalCalls != 2 {
		t.Errorf("expected single wrapping, got attach=%d original=%d", rec.Count(), originalCalls)
	}

	patch.Restore()
	if patch.Installed() {
		t.Error("expected patch to be uninstalled")
	}
	if !sameFunc(host.SetupHook(), original) {
		t.Error("expected the original hook to be restored")
	}

	host.Activate(newFakeController("c"), nil)
	if rec.Count() != 2 || originalCalls != 3 {
		t.Errorf("restored hook still attaches: attach=%d original=%d", rec.Count(), originalCalls)
	}

	patch.Restore()
}

func TestHookPatch_AttachesCurrentSource(t *testing.T) {
	current := newFakeController("playing")
	host := &fakeHost{
		hook:    func(domain.Controller, domain.Surface) {},
		current: current,
	}
	rec := &attachRecorder{}
	var patch HookPatch

	patch.Install(host, rec.Attach)
	if rec.Count() != 1 || rec.attached[0] != current {
		t.Errorf("expected the current controller to be attached, got %v", rec.attached)
	}
}

func TestHookPatch_HostNotReady(t *testing.T) {
	host := &fakeHost{}
	rec := &attachRecorder{}
	var patch HookPatch

	if patch.Install(host, rec.Attach) {
		t.Error("expected install to fail without a hook")
	}
	if patch.Installed() || host.SetupHook() != nil {
		t.Error("host should be left untouched")
	}

	patch.Restore()
	if host.SetupHook() != nil {
		t.Error("restore without install should not touch the host")
	}
}
