package polyfill

import (
	"go.uber.org/zap"

	"github.com/hexbound/workerboot/scope"
)

const (
	// PrimaryName is the global name the generated bindings probe for.
	PrimaryName = "AudioContext"

	// AlternateName is the vendor-prefixed variant of the same API. The
	// bindings generated for this deployment target probe only the primary
	// name, so no stand-in is installed under it.
	AlternateName = "webkitAudioContext"
)

// Stub is an empty stand-in for a host API that is absent in workers. The
// capability probe checks for existence only, never for behavior, so an
// empty construct is sufficient.
type Stub struct {
	Name string
}

// Install defines the stand-in under the primary expected name. It must run
// before the glue bindings evaluate, and cannot fail. The worker's global
// namespace gains one entry for the lifetime of the worker; the stub is
// never mutated or removed.
func Install(s *scope.Scope) {
	s.Define(PrimaryName, &Stub{Name: PrimaryName})
	scope.Logger().Debug("polyfill installed", zap.String("global", PrimaryName))
}

// Installed reports whether the stand-in is present in the scope.
func Installed(s *scope.Scope) bool {
	return s.Has(PrimaryName)
}
