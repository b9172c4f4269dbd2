// Package errors provides structured error types for the bootstrap pipeline.
//
// Errors carry a Phase (where in the bootstrap the failure occurred) and a
// Kind (what class of failure it is), so supervisors observing a dead worker
// can tell a malformed payload from a failed capability probe without string
// matching.
//
//	err := errors.ProbeFailed("AudioContext")
//	// [glue] probe_failed at AudioContext: capability probe found no global
//
// Errors unwrap to their cause, and Is matches on Phase and Kind.
package errors
