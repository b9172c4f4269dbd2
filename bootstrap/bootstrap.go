package bootstrap

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/errors"
	"github.com/hexbound/workerboot/glue"
	"github.com/hexbound/workerboot/loader"
	"github.com/hexbound/workerboot/polyfill"
	"github.com/hexbound/workerboot/scope"
)

// State is the bootstrap's position in its linear sequence.
type State int32

const (
	StateUninitialized State = iota
	StatePolyfillInstalled
	StateLoading
	StateReady
	StateInvoked // terminal
	StateFailed  // terminal
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePolyfillInstalled:
		return "polyfill_installed"
	case StateLoading:
		return "module_loading"
	case StateReady:
		return "module_ready"
	case StateInvoked:
		return "entry_invoked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadFunc is the asynchronous half of the module loader: it suspends until
// the payload at path is fetched, compiled, and instantiated, then yields
// the module or the load error.
type LoadFunc func(ctx context.Context, b *glue.Bindings, path string) (workerboot.Module, error)

// Options configures a bootstrap.
type Options struct {
	// Locator overrides the fixed relative paths. Empty fields take the
	// standard layout defaults.
	Locator workerboot.Locator

	// Load overrides the wazero loader, mainly for tests. When nil, the
	// bootstrap creates and owns a loader.Loader.
	Load LoadFunc

	// LoaderConfig configures the owned loader when Load is nil.
	LoaderConfig *loader.Config
}

// Bootstrap is one worker's startup sequence: polyfill, glue evaluation,
// payload load, entry invocation. Run executes the sequence at most once;
// any failure is terminal.
type Bootstrap struct {
	scope     *scope.Scope
	locator   workerboot.Locator
	load      LoadFunc
	loaderCfg *loader.Config

	module      workerboot.Module
	ownedLoader *loader.Loader
	state       atomic.Int32
	invoked     atomic.Bool
}

// New prepares a bootstrap for the given scope. Nothing runs until Run.
func New(s *scope.Scope, opts Options) *Bootstrap {
	return &Bootstrap{
		scope:     s,
		locator:   opts.Locator.WithDefaults(),
		load:      opts.Load,
		loaderCfg: opts.LoaderConfig,
	}
}

// State returns the bootstrap's current state.
func (b *Bootstrap) State() State {
	return State(b.state.Load())
}

// Scope returns the worker scope this bootstrap serves.
func (b *Bootstrap) Scope() *scope.Scope {
	return b.scope
}

// Module returns the instantiated module once the bootstrap reaches
// StateReady, nil before that.
func (b *Bootstrap) Module() workerboot.Module {
	return b.module
}

// Run executes the bootstrap sequence:
//
//  1. install the environment polyfill (synchronous, cannot fail),
//  2. load and evaluate the glue manifest,
//  3. load the payload (the sole suspension point),
//  4. invoke the entry export exactly once with the scope reference.
//
// Any error is terminal: the state becomes StateFailed, the entry is never
// invoked, and the error propagates to the caller untranslated. Run returns
// an error without side effects if called more than once.
func (b *Bootstrap) Run(ctx context.Context) error {
	if !b.state.CompareAndSwap(int32(StateUninitialized), int32(StatePolyfillInstalled)) {
		return errors.InvalidInput(errors.PhaseInvoke, "bootstrap already ran")
	}

	// The polyfill must precede the glue's capability probe.
	polyfill.Install(b.scope)

	manifest, err := glue.Load(b.locator.Glue)
	if err != nil {
		return b.fail(err)
	}

	bindings, err := manifest.Evaluate(b.scope)
	if err != nil {
		return b.fail(err)
	}

	load := b.load
	if load == nil {
		l, err := loader.New(ctx, b.loaderCfg)
		if err != nil {
			return b.fail(err)
		}
		b.ownedLoader = l
		load = l.LoadModule
	}

	b.state.Store(int32(StateLoading))
	Logger().Debug("loading payload", zap.String("path", b.locator.Payload))

	mod, err := load(ctx, bindings, b.locator.Payload)
	if err != nil {
		return b.fail(err)
	}

	b.module = mod
	b.state.Store(int32(StateReady))

	if !b.invoked.CompareAndSwap(false, true) {
		return b.fail(errors.AlreadyInvoked())
	}

	if err := mod.Entry(ctx, b.scope); err != nil {
		return b.fail(err)
	}

	b.state.Store(int32(StateInvoked))
	Logger().Debug("entry invoked", zap.String("state", b.State().String()))
	return nil
}

func (b *Bootstrap) fail(err error) error {
	b.state.Store(int32(StateFailed))
	Logger().Debug("bootstrap failed", zap.Error(err))
	return err
}

// Close releases the instantiated module and any loader the bootstrap owns.
// It does not close the scope; the scope's lifetime belongs to the harness
// that spawned the worker.
func (b *Bootstrap) Close(ctx context.Context) error {
	var firstErr error
	if b.module != nil {
		if err := b.module.Close(ctx); err != nil {
			firstErr = err
		}
		b.module = nil
	}
	if b.ownedLoader != nil {
		if err := b.ownedLoader.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		b.ownedLoader = nil
	}
	return firstErr
}
