// Package workerboot bootstraps a compiled WebAssembly module inside an
// isolated background worker and hands control to the module's designated
// entry point.
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	workerboot/          Root package with the Module contract and locators
//	├── bootstrap/       The linear bootstrap sequence and its state machine
//	├── scope/           The worker's global scope: bindings and message ports
//	├── polyfill/        No-op stand-ins for host APIs absent in workers
//	├── glue/            Generated bindings manifest and capability probes
//	├── loader/          wazero-based payload compilation and instantiation
//	├── worker/          Goroutine worker harness and host-side client
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Spawn a worker over a module directory:
//
//	w, err := worker.Spawn(ctx, worker.Options{Dir: "testdata/gui"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close(ctx)
//
//	client := w.Client()
//	client.Post(scope.Message{Kind: "ping"})
//
// # Bootstrap Sequence
//
// Each worker performs one linear bootstrap:
//
//  1. Install the environment polyfill into the worker's global scope.
//  2. Load the glue manifest and evaluate its capability probes.
//  3. Fetch, compile, and instantiate the binary payload (the sole
//     asynchronous step).
//  4. Invoke the module's entry export exactly once with the scope.
//
// Any failure is terminal for the worker and surfaces on the worker's error
// channel; no retries are attempted anywhere in this library.
package workerboot
