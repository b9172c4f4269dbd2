// Package polyfill supplies no-op stand-ins for host APIs that the binary
// module's generated bindings probe for but which do not exist in a worker
// execution context.
//
// The bindings perform an existence check against the global namespace at
// load time. Neither conventional name of the probed API is available inside
// a worker, so Install registers an empty construct under the primary name
// before the glue evaluates. Existence is all the probe requires.
package polyfill
