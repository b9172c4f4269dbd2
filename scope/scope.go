package scope

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hexbound/workerboot/errors"
)

// Message is one unit of traffic through a worker's ports.
type Message struct {
	Data any
	Kind string
}

// Handler receives messages delivered to the worker side of the scope.
// The module's entry point registers one via OnMessage.
type Handler func(ctx context.Context, msg Message)

// Scope is the worker's global execution context: a global binding table plus
// the message ports connecting the worker to its spawner. It is created by
// the harness that spawns the worker and passed by reference into the
// module's entry point; its lifetime is the worker's lifetime.
type Scope struct {
	globals map[string]any

	inbound    chan Message
	outbound   chan Message
	done       chan struct{}
	handlerSet chan struct{}

	handler   Handler
	closeOnce sync.Once
	mu        sync.RWMutex
}

// Options configures scope construction.
type Options struct {
	// QueueSize is the buffer depth of each message port. Zero means a
	// small default; messages posted before the module registers a handler
	// wait in the buffer.
	QueueSize int
}

const defaultQueueSize = 64

// New creates a scope with empty globals and open ports.
func New(opts Options) *Scope {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Scope{
		globals:    make(map[string]any),
		inbound:    make(chan Message, size),
		outbound:   make(chan Message, size),
		done:       make(chan struct{}),
		handlerSet: make(chan struct{}, 1),
	}
}

// Define installs a value in the global binding table. The polyfill writes
// here exactly once, before any concurrent observer exists.
func (s *Scope) Define(name string, value any) {
	s.mu.Lock()
	s.globals[name] = value
	s.mu.Unlock()
}

// Lookup returns the global bound to name.
func (s *Scope) Lookup(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.globals[name]
	return v, ok
}

// Has reports whether name is bound in the global table. Capability probes
// check existence only, never functional capability.
func (s *Scope) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.globals[name]
	return ok
}

// GlobalNames returns the currently bound global names.
func (s *Scope) GlobalNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.globals))
	for name := range s.globals {
		names = append(names, name)
	}
	return names
}

// OnMessage registers the worker-side message handler. The module's entry
// point calls this to begin receiving traffic; registering replaces any
// previous handler.
func (s *Scope) OnMessage(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()

	select {
	case s.handlerSet <- struct{}{}:
	default:
	}
}

// PostMessage queues a message from the spawner to the worker. It fails once
// the scope is closed rather than blocking forever on a dead worker.
func (s *Scope) PostMessage(msg Message) error {
	// Check done first: a select with a ready buffered send and a closed
	// done channel picks randomly, which would let posts slip through
	// after Close.
	select {
	case <-s.done:
		return errors.Closed(errors.PhaseDispatch, "scope")
	default:
	}
	select {
	case <-s.done:
		return errors.Closed(errors.PhaseDispatch, "scope")
	case s.inbound <- msg:
		return nil
	}
}

// Post queues a message from the worker back to the spawner.
func (s *Scope) Post(msg Message) error {
	select {
	case <-s.done:
		return errors.Closed(errors.PhaseDispatch, "scope")
	case s.outbound <- msg:
		return nil
	}
}

// Outbound returns the port carrying worker-to-spawner messages.
func (s *Scope) Outbound() <-chan Message {
	return s.outbound
}

// Serve runs the worker-side dispatch loop, delivering inbound messages to
// the registered handler until the scope closes or ctx is done. Messages
// arriving with no handler registered stay queued.
func (s *Scope) Serve(ctx context.Context) {
	// Nothing drains until the entry point registers a handler.
	select {
	case <-ctx.Done():
		return
	case <-s.done:
		return
	case <-s.handlerSet:
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg := <-s.inbound:
			s.mu.RLock()
			h := s.handler
			s.mu.RUnlock()
			h(ctx, msg)
		}
	}
}

// Done is closed when the scope's lifetime ends.
func (s *Scope) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close ends the scope's lifetime. Idempotent.
func (s *Scope) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		Logger().Debug("scope closed", zap.Int("pending", len(s.inbound)))
	})
}
