package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

// PostgresPlanCacheStore implements the store.PlanCacheStore interface
// using PostgreSQL. One row per (user_id, chat_id); refreshes replace the
// payload in place.
type PostgresPlanCacheStore struct {
	db store.DBTX
}

// NewPostgresPlanCacheStore creates a new PostgreSQL implementation of the
// PlanCacheStore interface.
func NewPostgresPlanCacheStore(db store.DBTX) *PostgresPlanCacheStore {
	return &PostgresPlanCacheStore{db: db}
}

// Ensure PostgresPlanCacheStore implements store.PlanCacheStore
var _ store.PlanCacheStore = (*PostgresPlanCacheStore)(nil)

// Upsert implements store.PlanCacheStore.Upsert
func (s *PostgresPlanCacheStore) Upsert(ctx context.Context, entry *store.PlanCacheEntry) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO plan_cache (user_id, chat_id, payload, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET payload = EXCLUDED.payload,
			generated_at = EXCLUDED.generated_at,
			updated_at = now()
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.UserID,
		entry.ChatID,
		entry.Payload,
		entry.GeneratedAt,
	)
	if err != nil {
		log.Error("failed to upsert plan cache entry",
			"user_id", entry.UserID,
			"chat_id", entry.ChatID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// Get implements store.PlanCacheStore.Get
func (s *PostgresPlanCacheStore) Get(ctx context.Context, userID, chatID string) (*store.PlanCacheEntry, error) {
	query := `
		SELECT user_id, chat_id, payload, generated_at
		FROM plan_cache
		WHERE user_id = $1 AND chat_id = $2
	`

	var entry store.PlanCacheEntry
	err := s.db.QueryRowContext(ctx, query, userID, chatID).Scan(
		&entry.UserID,
		&entry.ChatID,
		&entry.Payload,
		&entry.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan cache entry: %w", MapError(err))
	}

	return &entry, nil
}

// WithTx implements store.PlanCacheStore.WithTx
func (s *PostgresPlanCacheStore) WithTx(tx *sql.Tx) store.PlanCacheStore {
	return NewPostgresPlanCacheStore(tx)
}
