// Package worker spawns and supervises background workers.
//
// Spawn starts a goroutine that runs the bootstrap sequence and, once the
// module's entry point has registered its handlers, the scope's dispatch
// loop. The spawner talks to the worker through a Client (Post requests in,
// Poll results out) and observes terminal failures on the worker's Err
// channel. There is no respawn or retry policy here: a worker that fails to
// bootstrap is dead, and what to do about it belongs to the caller.
package worker
