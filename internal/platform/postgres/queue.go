package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/augur/internal/jobs"
	"github.com/phrazzld/augur/internal/platform/logger"
)

// popPollInterval is how long Pop sleeps between empty-queue probes.
const popPollInterval = 200 * time.Millisecond

// PostgresQueue implements the jobs.Queue interface on a job_queue table.
// Pop claims the oldest row with FOR UPDATE SKIP LOCKED, so concurrent
// workers never hand the same entry to two handlers. The blocking
// semantics of Pop are approximated by polling until the timeout expires.
type PostgresQueue struct {
	db   *sql.DB
	poll time.Duration
}

// NewPostgresQueue creates a queue backed by the given database handle.
func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db, poll: popPollInterval}
}

// Ensure PostgresQueue implements jobs.Queue
var _ jobs.Queue = (*PostgresQueue)(nil)

// Push implements jobs.Queue.Push
func (q *PostgresQueue) Push(ctx context.Context, queue string, raw []byte) error {
	log := logger.FromContext(ctx)

	query := `INSERT INTO job_queue (queue, envelope) VALUES ($1, $2)`

	if _, err := q.db.ExecContext(ctx, query, queue, raw); err != nil {
		log.Error("failed to push job", "queue", queue, "error", err)
		return fmt.Errorf("failed to push job: %w", MapError(err))
	}

	return nil
}

// Pop implements jobs.Queue.Pop. It probes immediately, then keeps
// polling until a row arrives, the timeout expires, or the context is
// canceled. A zero timeout makes exactly one probe.
func (q *PostgresQueue) Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		raw, ok, err := q.tryPop(ctx, queue)
		if err != nil || ok {
			return raw, ok, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, nil
		}

		wait := q.poll
		if remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryPop claims and removes the oldest entry in one statement. The SKIP
// LOCKED subquery keeps concurrent workers from blocking on each other.
func (q *PostgresQueue) tryPop(ctx context.Context, queue string) ([]byte, bool, error) {
	query := `
		DELETE FROM job_queue
		WHERE id = (
			SELECT id FROM job_queue
			WHERE queue = $1
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING envelope
	`

	var raw []byte
	err := q.db.QueryRowContext(ctx, query, queue).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to pop job: %w", MapError(err))
	}

	return raw, true, nil
}
