package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bootstrap sequence the error occurred
type Phase string

const (
	PhasePolyfill    Phase = "polyfill"    // environment stand-in installation
	PhaseGlue        Phase = "glue"        // bindings manifest evaluation
	PhaseLoad        Phase = "load"        // payload fetch and compile
	PhaseInstantiate Phase = "instantiate" // payload instantiation
	PhaseInvoke      Phase = "invoke"      // entry point invocation
	PhaseDispatch    Phase = "dispatch"    // message port traffic
	PhaseParse       Phase = "parse"       // manifest parsing
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidInput  Kind = "invalid_input"
	KindProbeFailed   Kind = "probe_failed"
	KindMissingExport Kind = "missing_export"
	KindInstantiation Kind = "instantiation"
	KindAlreadyDone   Kind = "already_done"
	KindClosed        Kind = "closed"
	KindTrap          Kind = "trap"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Symbol string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" at ")
		b.WriteString(e.Symbol)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Symbol sets the global or export name involved
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Symbol: name,
		Detail: what + " not found",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// ProbeFailed reports a capability probe that found no global under name.
// A failed probe manifests identically to a glue evaluation failure.
func ProbeFailed(name string) *Error {
	return &Error{
		Phase:  PhaseGlue,
		Kind:   KindProbeFailed,
		Symbol: name,
		Detail: "capability probe found no global",
	}
}

// MissingExport reports an entry or export symbol absent from the payload.
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindMissingExport,
		Symbol: name,
	}
}

// Load creates a load error wrapping a cause
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error wrapping a cause
func Instantiation(cause error) *Error {
	return &Error{
		Phase: PhaseInstantiate,
		Kind:  KindInstantiation,
		Cause: cause,
	}
}

// AlreadyInvoked reports a second entry invocation attempt.
func AlreadyInvoked() *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindAlreadyDone,
		Detail: "entry point already invoked for this worker",
	}
}

// Closed reports an operation against a closed scope or worker.
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// ParseFailed creates a parse error wrapping a cause
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: what,
		Cause:  cause,
	}
}

// Wrap creates an error with the given phase and kind wrapping a cause
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}
