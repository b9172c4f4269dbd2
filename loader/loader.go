package loader

import (
	"context"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/errors"
	"github.com/hexbound/workerboot/glue"
	"github.com/hexbound/workerboot/scope"
)

// Config holds configuration for loader creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// Loader brings binary payloads into memory and produces callable instances.
// One Loader owns one wazero runtime; it is safe for concurrent use.
type Loader struct {
	runtime wazero.Runtime
	stubbed map[string]bool
	stubsMu sync.Mutex
}

// New creates a wazero-backed loader.
func New(ctx context.Context, cfg *Config) (*Loader, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	return &Loader{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		stubbed: make(map[string]bool),
	}, nil
}

// Close releases the underlying runtime. All handles must be closed first.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// Begin starts the asynchronous fetch, compile, and instantiate sequence for
// the payload at path. The returned Pending resolves exactly once. There is
// no retry and no timeout: if the load never resolves, the caller stays
// suspended, which is the accepted behavior for this bootstrap.
func (l *Loader) Begin(ctx context.Context, b *glue.Bindings, path string) *Pending {
	p := newPending()
	go func() {
		h, err := l.load(ctx, b, path)
		if err != nil {
			p.resolve(nil, err)
			return
		}
		p.resolve(h, nil)
	}()
	return p
}

// LoadModule performs Begin and Await in one call.
func (l *Loader) LoadModule(ctx context.Context, b *glue.Bindings, path string) (workerboot.Module, error) {
	return l.Begin(ctx, b, path).Await(ctx)
}

func (l *Loader) load(ctx context.Context, b *glue.Bindings, path string) (*Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("fetch payload", err)
	}

	if err := l.instantiateStubs(ctx, b.Manifest()); err != nil {
		return nil, err
	}

	compiled, err := l.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Load("compile payload", err)
	}

	// Anonymous instance name allows parallel instantiation.
	mod, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	entry := mod.ExportedFunction(b.EntryName())
	if entry == nil {
		_ = mod.Close(ctx)
		return nil, errors.MissingExport(b.EntryName())
	}

	Logger().Debug("payload instantiated",
		zap.String("path", path),
		zap.String("entry", b.EntryName()))

	return &Handle{
		module:    mod,
		entryFn:   entry,
		entryName: b.EntryName(),
	}, nil
}

// instantiateStubs registers a no-op host module for each import namespace
// the manifest declares. The worker cannot provide these capabilities; the
// stubs exist so import resolution succeeds.
func (l *Loader) instantiateStubs(ctx context.Context, m *glue.Manifest) error {
	l.stubsMu.Lock()
	defer l.stubsMu.Unlock()

	for _, im := range m.Imports {
		if l.stubbed[im.Module] {
			continue
		}

		builder := l.runtime.NewHostModuleBuilder(im.Module)
		for _, fn := range im.Functions {
			params, err := FlatValueTypes(fn.Params())
			if err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err,
					"flatten import "+im.Module+"."+fn.Name)
			}
			results, err := FlatValueTypes(fn.Results())
			if err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err,
					"flatten import "+im.Module+"."+fn.Name)
			}
			builder.NewFunctionBuilder().
				WithGoModuleFunction(noopFunc(len(results)), params, results).
				Export(fn.Name)
		}

		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Load("instantiate host stubs for "+im.Module, err)
		}
		l.stubbed[im.Module] = true
	}

	return nil
}

// noopFunc returns a host function that ignores its arguments and produces
// zero values for each declared result.
func noopFunc(resultCount int) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		for i := 0; i < resultCount && i < len(stack); i++ {
			stack[i] = 0
		}
	}
}

// Handle is an instantiated payload: the glue exports backed by a running
// wazero module instance.
type Handle struct {
	module      api.Module
	entryFn     api.Function
	entryName   string
	scopeHandle scope.Handle
}

// Entry calls the module's entry export with the scope's handle as its sole
// argument. The scope is registered in the process-wide handle table first so
// host functions can resolve the identical *scope.Scope during and after the
// call.
func (h *Handle) Entry(ctx context.Context, s *scope.Scope) error {
	hd := scope.Handles.Insert(s)
	if hd == 0 {
		return errors.InvalidInput(errors.PhaseInvoke, "scope handle table is closed")
	}
	h.scopeHandle = hd

	if _, err := h.entryFn.Call(ctx, uint64(hd)); err != nil {
		scope.Handles.Remove(hd)
		h.scopeHandle = 0
		return errors.Wrap(errors.PhaseInvoke, errors.KindTrap, err, "entry "+h.entryName)
	}

	return nil
}

// Close releases the instance and its scope handle.
func (h *Handle) Close(ctx context.Context) error {
	if h.scopeHandle != 0 {
		scope.Handles.Remove(h.scopeHandle)
		h.scopeHandle = 0
	}
	if h.module == nil {
		return nil
	}
	err := h.module.Close(ctx)
	h.module = nil
	return err
}

// ExportedFunction returns a named export from the instance, or nil.
func (h *Handle) ExportedFunction(name string) api.Function {
	if h.module == nil {
		return nil
	}
	return h.module.ExportedFunction(name)
}

var _ workerboot.Module = (*Handle)(nil)
