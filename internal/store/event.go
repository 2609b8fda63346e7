package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/augur/internal/events"
)

// EventStore defines the interface for the append-only event log.
// Its Emit method satisfies events.Sink, so engines can write through the
// narrow interface while the status report uses the query methods here.
// Version: 1.0
type EventStore interface {
	// Emit appends one event to the log.
	Emit(ctx context.Context, event *events.Event) error

	// LastEventAt returns the creation time of the user's most recent event
	// of the given type, or nil when none has been recorded.
	LastEventAt(ctx context.Context, userID, eventType string) (*time.Time, error)

	// CountEventsSince counts the user's events of the given types created
	// at or after since.
	CountEventsSince(ctx context.Context, userID string, eventTypes []string, since time.Time) (int, error)

	// WithTx returns a new EventStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) EventStore
}
