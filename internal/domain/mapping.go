package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncState represents the push/reconcile state of a tracker mapping.
type SyncState string

// Possible sync states
const (
	SyncStatePending SyncState = "pending"
	SyncStateSynced  SyncState = "synced"
	SyncStateError   SyncState = "error"
)

// Common validation errors for TrackerMapping
var (
	ErrEmptyMappingID     = errors.New("mapping ID cannot be empty")
	ErrEmptyMappingUserID = errors.New("mapping user ID cannot be empty")
	ErrEmptyMappingTaskID = errors.New("mapping local task ID cannot be empty")
	ErrInvalidSyncState   = errors.New("invalid sync state")
)

// RemoteTaskMissing is the terminal last_error recorded when the remote
// side of a mapping has been deleted out-of-band. The mapping is kept so the
// drift stays visible; it is never recreated or deleted automatically.
const RemoteTaskMissing = "remote_task_missing"

// TrackerMapping correlates one local task with one remote tracker item.
// RemoteID stays empty until the first successful remote create. Mappings
// are never deleted, only re-stated.
type TrackerMapping struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	LocalTaskID   string     `json:"local_task_id"`
	RemoteID      string     `json:"todoist_task_id,omitempty"`
	SyncState     SyncState  `json:"sync_state"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// NewTrackerMapping creates a pending mapping for a local task with a
// generated ID and no remote counterpart yet.
func NewTrackerMapping(userID, localTaskID string) (*TrackerMapping, error) {
	m := &TrackerMapping{
		ID:          uuid.New().String(),
		UserID:      userID,
		LocalTaskID: localTaskID,
		SyncState:   SyncStatePending,
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks if the TrackerMapping has valid data.
func (m *TrackerMapping) Validate() error {
	if m.ID == "" {
		return ErrEmptyMappingID
	}

	if m.UserID == "" {
		return ErrEmptyMappingUserID
	}

	if m.LocalTaskID == "" {
		return ErrEmptyMappingTaskID
	}

	if !isValidSyncState(m.SyncState) {
		return ErrInvalidSyncState
	}

	return nil
}

// MarkSynced records a successful push or reconcile pass.
func (m *TrackerMapping) MarkSynced(now time.Time) {
	m.SyncState = SyncStateSynced
	m.LastError = ""
	synced := now
	m.LastSyncedAt = &synced
}

// MarkError records a per-task failure without touching last_synced_at.
func (m *TrackerMapping) MarkError(message string) {
	m.SyncState = SyncStateError
	m.LastError = message
}

// ParseSyncState converts a stored string into a SyncState, failing on
// unknown values.
func ParseSyncState(s string) (SyncState, error) {
	state := SyncState(s)
	if !isValidSyncState(state) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSyncState, s)
	}
	return state, nil
}

func isValidSyncState(state SyncState) bool {
	switch state {
	case SyncStatePending, SyncStateSynced, SyncStateError:
		return true
	default:
		return false
	}
}
