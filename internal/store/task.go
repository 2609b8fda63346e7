package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/augur/internal/domain"
)

// TaskStore defines the interface for task data persistence.
// Version: 1.0
type TaskStore interface {
	// Create saves a new task to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// ListByUser retrieves every task belonging to the user, ordered by ID.
	// Returns an empty slice if the user has no tasks. Callers that compute
	// blocking need the full set: finished tasks still decide whether their
	// dependents are blocked.
	ListByUser(ctx context.Context, userID string) ([]*domain.Task, error)

	// Update saves changes to an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	// Returns validation errors if the task data is invalid.
	Update(ctx context.Context, task *domain.Task) error

	// ListSourceInboxRefs returns the distinct inbox item IDs among ids that
	// at least one task references through its source inbox item column.
	ListSourceInboxRefs(ctx context.Context, ids []string) ([]string, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
