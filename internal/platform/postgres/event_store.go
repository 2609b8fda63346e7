package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

// PostgresEventStore implements the store.EventStore interface using
// PostgreSQL. The event_log table is append-only; nothing in the worker
// updates or deletes rows.
type PostgresEventStore struct {
	db store.DBTX
}

// NewPostgresEventStore creates a new PostgreSQL implementation of the
// EventStore interface.
func NewPostgresEventStore(db store.DBTX) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// Ensure PostgresEventStore implements store.EventStore
var _ store.EventStore = (*PostgresEventStore)(nil)

// Emit implements store.EventStore.Emit
func (s *PostgresEventStore) Emit(ctx context.Context, event *events.Event) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO event_log (id, request_id, user_id, event_type,
			entity_type, entity_id, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.RequestID,
		event.UserID,
		event.Type,
		nullString(event.EntityType),
		nullString(event.EntityID),
		[]byte(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		log.Error("failed to emit event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return MapError(err)
	}

	return nil
}

// LastEventAt implements store.EventStore.LastEventAt
func (s *PostgresEventStore) LastEventAt(ctx context.Context, userID, eventType string) (*time.Time, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT MAX(created_at)
		FROM event_log
		WHERE user_id = $1 AND event_type = $2
	`

	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID, eventType).Scan(&last)
	if err != nil {
		log.Error("failed to query last event time",
			"user_id", userID,
			"event_type", eventType,
			"error", err)
		return nil, fmt.Errorf("failed to query last event time: %w", MapError(err))
	}

	return timePtr(last), nil
}

// CountEventsSince implements store.EventStore.CountEventsSince
func (s *PostgresEventStore) CountEventsSince(ctx context.Context, userID string, eventTypes []string, since time.Time) (int, error) {
	log := logger.FromContext(ctx)

	if len(eventTypes) == 0 {
		return 0, nil
	}

	query := `
		SELECT COUNT(*)
		FROM event_log
		WHERE user_id = $1 AND event_type = ANY($2) AND created_at >= $3
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, eventTypes, since).Scan(&count)
	if err != nil {
		log.Error("failed to count events",
			"user_id", userID,
			"error", err)
		return 0, fmt.Errorf("failed to count events: %w", MapError(err))
	}

	return count, nil
}

// WithTx implements store.EventStore.WithTx
func (s *PostgresEventStore) WithTx(tx *sql.Tx) store.EventStore {
	return NewPostgresEventStore(tx)
}
