package bootstrap

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/errors"
	"github.com/hexbound/workerboot/glue"
	"github.com/hexbound/workerboot/polyfill"
	"github.com/hexbound/workerboot/scope"
)

type mockModule struct {
	gotScope *scope.Scope
	entryErr error
	calls    atomic.Int32
}

func (m *mockModule) Entry(_ context.Context, s *scope.Scope) error {
	m.calls.Add(1)
	m.gotScope = s
	return m.entryErr
}

func (m *mockModule) Close(context.Context) error { return nil }

var _ workerboot.Module = (*mockModule)(nil)

const testManifest = `{
	"name": "gui",
	"payload": "./pkg/gui_bg.wasm",
	"entry": "web_main",
	"probes": ["AudioContext"]
}`

func writeGlue(t *testing.T, manifest string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gui.json")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	s := scope.New(scope.Options{})
	mod := &mockModule{}

	var gotPath string
	var polyfillUpAtLoad bool
	load := func(_ context.Context, b *glue.Bindings, path string) (workerboot.Module, error) {
		gotPath = path
		polyfillUpAtLoad = polyfill.Installed(b.Scope())
		time.Sleep(time.Millisecond) // resolve after one tick
		return mod, nil
	}

	b := New(s, Options{
		Locator: workerboot.Locator{
			Glue:    writeGlue(t, testManifest),
			Payload: "./pkg/gui_bg.wasm",
		},
		Load: load,
	})

	if b.State() != StateUninitialized {
		t.Fatalf("initial state = %s", b.State())
	}

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gotPath != "./pkg/gui_bg.wasm" {
		t.Errorf("loader called with %q, want the payload locator verbatim", gotPath)
	}
	if !polyfillUpAtLoad {
		t.Error("polyfill was not installed before the load began")
	}
	if got := mod.calls.Load(); got != 1 {
		t.Errorf("entry called %d times, want exactly 1", got)
	}
	if mod.gotScope != s {
		t.Error("entry received a different scope reference")
	}
	if b.State() != StateInvoked {
		t.Errorf("final state = %s", b.State())
	}
	if b.Module() != mod {
		t.Error("Module() did not return the instantiated module")
	}
}

func TestRun_PolyfillPrecedesProbe(t *testing.T) {
	// The manifest probes for the polyfilled global; evaluation happens
	// before the loader runs, so a successful load proves ordering.
	s := scope.New(scope.Options{})
	if polyfill.Installed(s) {
		t.Fatal("scope polyfilled before Run")
	}

	loadCalled := false
	b := New(s, Options{
		Locator: workerboot.Locator{Glue: writeGlue(t, testManifest)},
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			loadCalled = true
			return &mockModule{}, nil
		},
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !loadCalled {
		t.Fatal("load never ran")
	}
	if !polyfill.Installed(s) {
		t.Error("polyfill missing after Run")
	}
}

func TestRun_SecondRunRejected(t *testing.T) {
	s := scope.New(scope.Options{})
	mod := &mockModule{}
	b := New(s, Options{
		Locator: workerboot.Locator{Glue: writeGlue(t, testManifest)},
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			return mod, nil
		},
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("second Run should fail")
	}
	if got := mod.calls.Load(); got != 1 {
		t.Errorf("entry called %d times across two Runs, want 1", got)
	}
}

func TestRun_InvocationWaitsForResolution(t *testing.T) {
	s := scope.New(scope.Options{})
	mod := &mockModule{}
	release := make(chan struct{})

	b := New(s, Options{
		Locator: workerboot.Locator{Glue: writeGlue(t, testManifest)},
		Load: func(ctx context.Context, _ *glue.Bindings, _ string) (workerboot.Module, error) {
			<-release
			return mod, nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	// While the load is suspended, the entry must not have been called.
	time.Sleep(30 * time.Millisecond)
	if got := mod.calls.Load(); got != 0 {
		t.Fatalf("entry called %d times before load resolved", got)
	}
	if b.State() != StateLoading {
		t.Errorf("state during suspension = %s", b.State())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mod.calls.Load(); got != 1 {
		t.Errorf("entry called %d times after resolution", got)
	}
}

func TestRun_FailedLoadSuppressesInvocation(t *testing.T) {
	s := scope.New(scope.Options{})
	mod := &mockModule{}
	loadErr := errors.Load("payload corrupt", nil)

	b := New(s, Options{
		Locator: workerboot.Locator{Glue: writeGlue(t, testManifest)},
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			return nil, loadErr
		},
	})

	err := b.Run(context.Background())
	if !stderrors.Is(err, loadErr) {
		t.Fatalf("Run = %v, want the load error untranslated", err)
	}
	if got := mod.calls.Load(); got != 0 {
		t.Errorf("entry called %d times after failed load", got)
	}
	if b.State() != StateFailed {
		t.Errorf("state = %s, want failed", b.State())
	}
}

func TestRun_FailedProbeSuppressesLoad(t *testing.T) {
	manifest := `{"payload": "./pkg/gui_bg.wasm", "probes": ["MissingCapability"]}`
	s := scope.New(scope.Options{})

	loadCalled := false
	b := New(s, Options{
		Locator: workerboot.Locator{Glue: writeGlue(t, manifest)},
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			loadCalled = true
			return &mockModule{}, nil
		},
	})

	err := b.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail on an unsatisfied probe")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindProbeFailed {
		t.Errorf("unexpected error: %v", err)
	}
	if loadCalled {
		t.Error("load ran despite failed glue evaluation")
	}
	if b.State() != StateFailed {
		t.Errorf("state = %s", b.State())
	}
}

func TestRun_MissingManifestFails(t *testing.T) {
	s := scope.New(scope.Options{})
	b := New(s, Options{
		Locator: workerboot.Locator{Glue: filepath.Join(t.TempDir(), "absent.json")},
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			t.Fatal("load must not run without glue")
			return nil, nil
		},
	})

	err := b.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail on a missing manifest")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseParse {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRun_EntryErrorIsTerminal(t *testing.T) {
	s := scope.New(scope.Options{})
	mod := &mockModule{entryErr: errors.Wrap(errors.PhaseInvoke, errors.KindTrap, nil, "boom")}

	b := New(s, Options{
		Locator: workerboot.Locator{Glue: writeGlue(t, testManifest)},
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			return mod, nil
		},
	})

	if err := b.Run(context.Background()); err == nil {
		t.Fatal("Run should surface the entry error")
	}
	if b.State() != StateFailed {
		t.Errorf("state = %s", b.State())
	}
	if got := mod.calls.Load(); got != 1 {
		t.Errorf("entry calls = %d", got)
	}
}

func TestRun_DefaultLocator(t *testing.T) {
	b := New(scope.New(scope.Options{}), Options{})
	if b.locator.Glue != workerboot.DefaultGluePath {
		t.Errorf("glue locator = %q", b.locator.Glue)
	}
	if b.locator.Payload != workerboot.DefaultPayloadPath {
		t.Errorf("payload locator = %q", b.locator.Payload)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "uninitialized"},
		{StatePolyfillInstalled, "polyfill_installed"},
		{StateLoading, "module_loading"},
		{StateReady, "module_ready"},
		{StateInvoked, "entry_invoked"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
