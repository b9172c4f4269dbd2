package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/bootstrap"
	"github.com/hexbound/workerboot/errors"
	"github.com/hexbound/workerboot/loader"
	"github.com/hexbound/workerboot/scope"
)

// Options configures a worker spawn.
type Options struct {
	// Dir is the worker's base directory; the locator paths resolve
	// beneath it. Empty means the current directory.
	Dir string

	// Locator overrides the fixed relative paths within Dir.
	Locator workerboot.Locator

	// Load overrides the payload loader, mainly for tests.
	Load bootstrap.LoadFunc

	// LoaderConfig configures the wazero loader when Load is nil.
	LoaderConfig *loader.Config

	// QueueSize is the scope's message port depth.
	QueueSize int
}

// Worker is one spawned background execution context: a goroutine running
// the bootstrap and then the scope's dispatch loop. The spawner observes
// failures through Err; the worker itself never recovers from them.
type Worker struct {
	scope  *scope.Scope
	boot   *bootstrap.Bootstrap
	cancel context.CancelFunc

	errc      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// Spawn starts a worker over a module directory. The returned worker is
// already bootstrapping; a failed bootstrap surfaces on Err, not here.
func Spawn(ctx context.Context, opts Options) (*Worker, error) {
	if opts.Dir != "" {
		if _, err := os.Stat(opts.Dir); err != nil {
			return nil, errors.Load("module directory", err)
		}
	}

	loc := opts.Locator.WithDefaults()
	if opts.Dir != "" {
		loc.Glue = filepath.Join(opts.Dir, loc.Glue)
		loc.Payload = filepath.Join(opts.Dir, loc.Payload)
	}

	s := scope.New(scope.Options{QueueSize: opts.QueueSize})
	boot := bootstrap.New(s, bootstrap.Options{
		Locator:      loc,
		Load:         opts.Load,
		LoaderConfig: opts.LoaderConfig,
	})

	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		scope:  s,
		boot:   boot,
		cancel: cancel,
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	go w.run(ctx)
	return w, nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	if err := w.boot.Run(ctx); err != nil {
		Logger().Error("worker bootstrap failed", zap.Error(err))
		w.errc <- err
		w.scope.Close()
		return
	}

	// Control now belongs to the module; the worker's remaining job is
	// delivering messages to whatever handlers the entry registered.
	w.scope.Serve(ctx)
}

// Scope returns the worker's global scope.
func (w *Worker) Scope() *scope.Scope {
	return w.scope
}

// State returns the bootstrap's current state.
func (w *Worker) State() bootstrap.State {
	return w.boot.State()
}

// Err is the worker's error event channel. A terminal bootstrap failure is
// delivered here exactly once; the channel never closes.
func (w *Worker) Err() <-chan error {
	return w.errc
}

// Done is closed when the worker goroutine exits.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Client returns a host-side client bound to this worker's ports.
func (w *Worker) Client() *Client {
	return &Client{worker: w}
}

// Close terminates the worker: the scope closes, the dispatch loop stops,
// and module resources are released. Idempotent.
func (w *Worker) Close(ctx context.Context) error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		w.scope.Close()
		<-w.done
		err = w.boot.Close(ctx)
	})
	return err
}
