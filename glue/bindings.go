package glue

import (
	"github.com/hexbound/workerboot/scope"
)

// Bindings is the populated bindings object produced by a successful
// evaluation. It ties the manifest to the scope it was evaluated against;
// the loader consumes it to instantiate the payload.
type Bindings struct {
	manifest *Manifest
	scope    *scope.Scope
}

// Manifest returns the underlying bindings descriptor.
func (b *Bindings) Manifest() *Manifest {
	return b.manifest
}

// Scope returns the scope the bindings were evaluated against.
func (b *Bindings) Scope() *scope.Scope {
	return b.scope
}

// EntryName returns the exported entry function name.
func (b *Bindings) EntryName() string {
	return b.manifest.Entry
}

// Payload returns the manifest's payload locator.
func (b *Bindings) Payload() string {
	return b.manifest.Payload
}
