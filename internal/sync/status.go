package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/store"
)

// DefaultFailureWindow bounds how far back Status counts recent reconcile
// failures.
const DefaultFailureWindow = time.Hour

// Status summarizes one user's tracker sync health.
type Status struct {
	TotalMapped             int        `json:"total_mapped"`
	PendingSync             int        `json:"pending_sync"`
	ErrorCount              int        `json:"error_count"`
	LastSyncedAt            *time.Time `json:"last_synced_at,omitempty"`
	LastAttemptAt           *time.Time `json:"last_attempt_at,omitempty"`
	LastReconcileAt         *time.Time `json:"last_reconcile_at,omitempty"`
	RecentReconcileFailures int        `json:"recent_reconcile_failures"`
}

// StatusService assembles the sync health report. It is read-only; the
// worker never consults it, it exists for operational surfaces.
type StatusService struct {
	mappings store.MappingStore
	events   store.EventStore
	window   time.Duration

	// now is swapped out in tests
	now func() time.Time
}

// NewStatusService creates a status service. A non-positive window falls
// back to DefaultFailureWindow.
func NewStatusService(mappings store.MappingStore, eventStore store.EventStore, window time.Duration) *StatusService {
	if window <= 0 {
		window = DefaultFailureWindow
	}
	return &StatusService{
		mappings: mappings,
		events:   eventStore,
		window:   window,
		now:      time.Now,
	}
}

// Status reports the user's mapping counters, the time of the last
// completed reconcile pass, and how many reconcile failures or remote
// misses were recorded within the service's window.
func (s *StatusService) Status(ctx context.Context, userID string) (*Status, error) {
	counters, err := s.mappings.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping counters: %w", err)
	}

	lastReconcile, err := s.events.LastEventAt(ctx, userID, events.TypeReconcileCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to load last reconcile time: %w", err)
	}

	since := s.now().UTC().Add(-s.window)
	failures, err := s.events.CountEventsSince(ctx, userID,
		[]string{events.TypeReconcileTaskFailed, events.TypeReconcileRemoteMissing}, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent failures: %w", err)
	}

	return &Status{
		TotalMapped:             counters.TotalMapped,
		PendingSync:             counters.PendingSync,
		ErrorCount:              counters.ErrorCount,
		LastSyncedAt:            counters.LastSyncedAt,
		LastAttemptAt:           counters.LastAttemptAt,
		LastReconcileAt:         lastReconcile,
		RecentReconcileFailures: failures,
	}, nil
}
