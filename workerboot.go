package workerboot

import (
	"context"

	"github.com/hexbound/workerboot/scope"
)

// Module is an instantiated binary module: glue exports plus the compiled
// payload. The bootstrap owns the handle until Entry is called, after which
// control conceptually belongs to the module.
type Module interface {
	// Entry transfers control into the module's designated worker-side entry
	// function. It receives the worker's own global scope and is called at
	// most once per worker lifetime.
	Entry(ctx context.Context, s *scope.Scope) error

	// Close releases the instance. Safe to call after a failed Entry.
	Close(ctx context.Context) error
}

// Locator names where the module's pieces live, relative to the worker's
// base directory. The defaults are fixed by the deployment layout.
type Locator struct {
	// Glue is the path to the generated bindings manifest.
	Glue string

	// Payload is the path to the compiled binary module, passed verbatim
	// to the glue's loader function.
	Payload string
}

const (
	// DefaultGluePath is the conventional location of the bindings manifest.
	DefaultGluePath = "pkg/gui.json"

	// DefaultPayloadPath is the conventional location of the compiled payload.
	DefaultPayloadPath = "pkg/gui_bg.wasm"
)

// DefaultLocator returns the fixed relative paths used by the standard layout.
func DefaultLocator() Locator {
	return Locator{
		Glue:    DefaultGluePath,
		Payload: DefaultPayloadPath,
	}
}

// WithDefaults fills empty fields from the standard layout.
func (l Locator) WithDefaults() Locator {
	if l.Glue == "" {
		l.Glue = DefaultGluePath
	}
	if l.Payload == "" {
		l.Payload = DefaultPayloadPath
	}
	return l
}
