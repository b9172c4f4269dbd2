// Package glue models the generated bindings layer between the worker and
// the compiled payload.
//
// Where a scripting host would import a generated glue script, this package
// performs an explicit load-and-link step with a known interface contract:
// a JSON manifest names the entry export, the global capability probes the
// bindings perform at evaluation time, and the host imports the payload
// expects. Evaluating the manifest against a scope reproduces the glue's
// top-level evaluation, including the capability probe that the environment
// polyfill exists to satisfy.
package glue
