package remote

import "context"

// TaskPayload is the outbound task representation sent to the tracker.
// Priority uses the tracker's scale, where 4 is the most urgent.
type TaskPayload struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// RemoteDue is the tracker's due-date object. Only the date component is
// meaningful here; recurring-due metadata is ignored.
type RemoteDue struct {
	Date string `json:"date"`
}

// RemoteTask is the tracker's task representation as returned by its API.
type RemoteTask struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	IsCompleted bool       `json:"is_completed"`
	Due         *RemoteDue `json:"due"`
}

// Tracker defines the interface for the remote task tracker.
// This interface serves as a boundary between the sync engines and the
// external service, following the hexagonal architecture pattern.
type Tracker interface {
	// CreateTask creates a task remotely and returns the tracker's
	// representation of it. The returned ID keys all later calls.
	CreateTask(ctx context.Context, payload TaskPayload) (RemoteTask, error)

	// UpdateTask overwrites the mutable fields of an existing remote task.
	UpdateTask(ctx context.Context, remoteID string, payload TaskPayload) error

	// CloseTask marks the remote task complete.
	CloseTask(ctx context.Context, remoteID string) error

	// GetTask fetches one remote task. The boolean reports whether the task
	// exists: a deleted or never-created remote task returns
	// (RemoteTask{}, false, nil) rather than an error, so callers can treat
	// absence as a state to reconcile instead of a failure.
	GetTask(ctx context.Context, remoteID string) (RemoteTask, bool, error)
}
