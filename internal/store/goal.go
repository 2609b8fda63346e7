package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/augur/internal/domain"
)

// GoalStore defines the interface for goal data persistence.
// Version: 1.0
type GoalStore interface {
	// Create saves a new goal to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Goal if data is invalid.
	Create(ctx context.Context, goal *domain.Goal) error

	// GetByID retrieves a goal by its unique ID.
	// Returns ErrGoalNotFound if the goal does not exist.
	GetByID(ctx context.Context, id string) (*domain.Goal, error)

	// ListByUser retrieves every goal belonging to the user, ordered by ID.
	// Returns an empty slice if the user has no goals.
	ListByUser(ctx context.Context, userID string) ([]*domain.Goal, error)

	// Update saves changes to an existing goal.
	// Returns ErrGoalNotFound if the goal does not exist.
	Update(ctx context.Context, goal *domain.Goal) error

	// WithTx returns a new GoalStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) GoalStore
}
