package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/augur/internal/domain"
)

// LinkStore defines the interface for entity link persistence.
// Version: 1.0
type LinkStore interface {
	// Create saves a new entity link.
	// It handles domain validation internally.
	Create(ctx context.Context, link *domain.EntityLink) error

	// ListByUser retrieves every link belonging to the user, ordered by ID.
	// Returns an empty slice if the user has no links.
	ListByUser(ctx context.Context, userID string) ([]*domain.EntityLink, error)

	// WithTx returns a new LinkStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) LinkStore
}
