package store

import (
	"context"
	"database/sql"
	"time"
)

// PlanCacheEntry is one cached plan payload keyed by user and chat.
// Payload holds the marshaled plan exactly as it will be served.
type PlanCacheEntry struct {
	UserID      string
	ChatID      string
	Payload     []byte
	GeneratedAt time.Time
}

// PlanCacheStore defines the interface for cached plan persistence.
// Version: 1.0
type PlanCacheStore interface {
	// Upsert stores the entry, replacing any previous plan cached for the
	// same user and chat.
	Upsert(ctx context.Context, entry *PlanCacheEntry) error

	// Get retrieves the cached plan for a user and chat.
	// Returns ErrPlanNotFound when nothing is cached.
	Get(ctx context.Context, userID, chatID string) (*PlanCacheEntry, error)

	// WithTx returns a new PlanCacheStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) PlanCacheStore
}
