// Package scope models the worker's global execution context as an explicit
// handle: a global binding table plus the message ports connecting the worker
// to its spawner.
//
// A Scope is created by whatever spawns the worker, mutated once by the
// environment polyfill, probed by the glue bindings, and finally passed by
// reference into the binary module's entry point. The entry point registers
// a message handler via OnMessage, after which Serve delivers traffic until
// the scope closes.
//
// The package-level Handles table maps scopes to integer handles so the raw
// wasm entry export can receive its scope as an i32 argument.
package scope
