// Package bootstrap runs a worker's startup sequence and hands control to
// the binary module's entry point.
//
// The sequence is strictly linear:
//
//	UNINITIALIZED → POLYFILL_INSTALLED → MODULE_LOADING → MODULE_READY →
//	ENTRY_INVOKED
//
// with FAILED as the terminal state for any error. The polyfill installs
// before the glue bindings evaluate their capability probe; the payload load
// is the only suspension point; the entry export is invoked exactly once and
// never after a failed load. No step retries, and no failure is translated:
// errors propagate to whatever supervises the worker.
package bootstrap
