package jobs

import (
	"context"
	"time"
)

// Queue names used by the dispatcher.
const (
	// DefaultQueue is the primary work queue the dispatcher consumes.
	DefaultQueue = "default_queue"

	// DeadLetterQueue receives envelopes that exhausted their retry
	// budget. Nothing consumes it automatically; entries wait for an
	// operator.
	DeadLetterQueue = "dead_letter_queue"
)

// Queue is a durable FIFO byte queue with a blocking pop.
// Version: 1.0
type Queue interface {
	// Push appends raw to the tail of the named queue.
	Push(ctx context.Context, queue string, raw []byte) error

	// Pop removes and returns the oldest entry of the named queue,
	// waiting up to timeout for one to arrive. The boolean is false when
	// the wait expired with the queue still empty.
	Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, bool, error)
}
