// Package jobs implements the queue-driven dispatch loop at the heart of
// the worker. It defines the envelope wire format, the durable queue
// contract, and a dispatcher that routes envelopes to topic handlers with
// exponential-backoff retry and a dead-letter queue for jobs that exhaust
// their attempt budget.
package jobs
