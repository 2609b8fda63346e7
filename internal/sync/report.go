package sync

import (
	"fmt"
	"time"
)

// Config carries the batch tunables shared by the sync engines.
type Config struct {
	// MaxAttempts mirrors the dispatcher's retry budget. It only feeds the
	// will_retry hints on failure events; the dispatcher owns enforcement.
	MaxAttempts int

	// BackoffCap bounds the retry delay reported on push failure events.
	BackoffCap time.Duration

	// PageSize is the reconcile scan's batch size.
	PageSize int
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BackoffCap:  60 * time.Second,
		PageSize:    50,
	}
}

// BatchError reports that a committed batch contained per-task failures.
// It surfaces only after the transaction commits: everything the batch
// changed is already persisted, and a retry re-runs the whole job against
// that persisted state.
type BatchError struct {
	// Operation names the batch that failed, "push" or "reconcile".
	Operation string

	// Failed is the number of tasks that could not be processed.
	Failed int
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch committed with %d failed tasks", e.Operation, e.Failed)
}

// report tallies per-task outcomes while a batch is in flight. The engines
// consult it only after the commit, so one task's failure never rolls back
// its peers.
type report struct {
	operation string
	succeeded int
	failed    int
}

func (r *report) success() { r.succeeded++ }
func (r *report) failure() { r.failed++ }

func (r *report) anyFailed() bool { return r.failed > 0 }

// err converts the tally into the engine's return value: nil for a clean
// batch, a BatchError otherwise.
func (r *report) err() error {
	if r.failed == 0 {
		return nil
	}
	return &BatchError{Operation: r.operation, Failed: r.failed}
}
