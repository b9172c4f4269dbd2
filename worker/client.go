package worker

import (
	"github.com/hexbound/workerboot/scope"
)

// Client is the spawner's half of a worker's message ports: requests go in
// with Post, results come back with Poll. A client is bound to one worker
// and is not safe for concurrent use; give each goroutine its own client or
// synchronize externally.
type Client struct {
	worker *Worker
	dead   bool
}

// Post queues a message to the worker. A post to a dead worker fails and
// marks the client dead.
func (c *Client) Post(msg scope.Message) error {
	if err := c.worker.scope.PostMessage(msg); err != nil {
		c.dead = true
		return err
	}
	return nil
}

// Poll returns the next worker-to-spawner message without blocking. It
// returns ok=false when no message is waiting; the client goes dead when
// the worker's ports close.
func (c *Client) Poll() (scope.Message, bool) {
	select {
	case msg := <-c.worker.scope.Outbound():
		return msg, true
	default:
	}

	// Queued replies drain even after close; only then report death.
	if c.worker.scope.Closed() {
		c.dead = true
	}
	return scope.Message{}, false
}

// Dead reports whether the worker has stopped accepting traffic, either
// because its bootstrap failed or because it was closed.
func (c *Client) Dead() bool {
	if c.dead {
		return true
	}
	if c.worker.scope.Closed() {
		c.dead = true
	}
	return c.dead
}
