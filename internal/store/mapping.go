package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/augur/internal/domain"
)

// PushCandidate pairs a task that needs a push with its tracker mapping,
// when one exists. Mapping is nil for tasks that have never been mapped.
type PushCandidate struct {
	Task    *domain.Task
	Mapping *domain.TrackerMapping
}

// MappingRow returns the candidate's mapping and whether one exists yet.
func (c PushCandidate) MappingRow() (*domain.TrackerMapping, bool) {
	return c.Mapping, c.Mapping != nil
}

// MappingStatus aggregates one user's sync mapping counters for the
// status report.
type MappingStatus struct {
	TotalMapped   int
	PendingSync   int
	ErrorCount    int
	LastSyncedAt  *time.Time
	LastAttemptAt *time.Time
}

// MappingStore defines the interface for tracker mapping persistence.
// Version: 1.0
type MappingStore interface {
	// Upsert inserts the mapping or updates the existing row keyed by
	// (user ID, local task ID).
	Upsert(ctx context.Context, mapping *domain.TrackerMapping) error

	// GetByLocalTaskID retrieves the mapping for a local task.
	// Returns ErrMappingNotFound if no mapping exists.
	GetByLocalTaskID(ctx context.Context, userID, localTaskID string) (*domain.TrackerMapping, error)

	// ListPushCandidates returns the user's tasks whose local state has not
	// reached the remote tracker: unmapped tasks, mappings without a remote
	// ID, mappings not in the synced state, mappings never synced, and tasks
	// updated after their last successful sync. Ordered by task ID.
	ListPushCandidates(ctx context.Context, userID string) ([]PushCandidate, error)

	// ListMappedPage returns one page of the user's mappings that carry a
	// remote ID, ordered by mapping ID. An empty page means the scan is done.
	ListMappedPage(ctx context.Context, userID string, limit, offset int) ([]*domain.TrackerMapping, error)

	// Status aggregates the user's mapping counters.
	Status(ctx context.Context, userID string) (*MappingStatus, error)

	// WithTx returns a new MappingStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) MappingStore
}
