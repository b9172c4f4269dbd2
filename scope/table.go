package scope

import (
	"sync"
)

// Handle is an integer reference to a scope, usable as a wasm i32 argument.
// The zero handle is never valid.
type Handle uint32

// Table maps scopes to integer handles so the raw entry export can receive
// the worker's scope as a single i32 while the Go contract stays *Scope.
// Identity is preserved: Get returns the exact registered pointer.
type Table struct {
	entries map[Handle]*Scope
	next    Handle
	mu      sync.RWMutex
	closed  bool
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Handle]*Scope),
		next:    1,
	}
}

// Insert registers a scope and returns its handle, or 0 if the table closed.
func (t *Table) Insert(s *Scope) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}

	h := t.next
	t.next++
	t.entries[h] = s
	return h
}

// Get retrieves the scope for a handle.
func (t *Table) Get(h Handle) (*Scope, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.entries[h]
	return s, ok
}

// Remove drops a handle and returns (scope, true) if it was present.
func (t *Table) Remove(h Handle) (*Scope, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[h]
	if !ok {
		return nil, false
	}
	delete(t.entries, h)
	return s, true
}

// Len returns the number of registered scopes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close drops all handles and stops accepting inserts.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = make(map[Handle]*Scope)
}

// Handles is the process-wide table the loader registers scopes in before
// calling the raw entry export.
var Handles = NewTable()
