package loader

import (
	"context"

	workerboot "github.com/hexbound/workerboot"
)

// Pending is an in-flight load: the asynchronous span between Begin and the
// payload being fetched, compiled, and instantiated. It resolves exactly
// once, to either a module or an error, and never changes afterward.
type Pending struct {
	mod  workerboot.Module
	err  error
	done chan struct{}
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(mod workerboot.Module, err error) {
	p.mod = mod
	p.err = err
	close(p.done)
}

// Await suspends until the load resolves or ctx is done. Abandoning the wait
// does not cancel the underlying load; the bootstrap itself never abandons
// it, but a supervisor tearing the worker down may.
func (p *Pending) Await(ctx context.Context) (workerboot.Module, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.mod, p.err
	}
}

// Resolved reports whether the load has completed, successfully or not.
func (p *Pending) Resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done is closed when the load resolves.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}
