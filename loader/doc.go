// Package loader fetches, compiles, and instantiates binary payloads on a
// wazero runtime.
//
// A load has two halves. Begin starts the asynchronous
// fetch-compile-instantiate sequence and returns a Pending; Await suspends
// until it resolves. The bootstrap performs no other asynchronous work, so
// the Pending is the sole suspension point of worker startup. Failures
// (missing payload, malformed binary, failed instantiation) resolve the
// Pending with an error and are never retried here.
//
// Before instantiating the payload, the loader registers no-op host modules
// for every import namespace the glue manifest declares, so that import
// resolution succeeds for capabilities the worker cannot provide.
package loader
