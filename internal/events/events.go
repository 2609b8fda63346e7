package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type names written to the audit log. Every observable state
// transition in the worker maps to one of these.
const (
	TypeWorkerTopicCompleted     = "worker_topic_completed"
	TypeWorkerRetryScheduled     = "worker_retry_scheduled"
	TypeWorkerMovedToDLQ         = "worker_moved_to_dlq"
	TypeSyncCompleted            = "todoist_sync_completed"
	TypeSyncTaskFailed           = "todoist_sync_task_failed"
	TypeReconcileCompleted       = "todoist_reconcile_completed"
	TypeReconcileTaskFailed      = "todoist_reconcile_task_failed"
	TypeReconcileRemoteMissing   = "todoist_reconcile_remote_missing"
	TypeMemoryCompactionComplete = "memory_compaction_completed"
	TypePlanRewriteFallback      = "plan_rewrite_fallback"
)

// Event is a single append-only audit fact. Events are write-only from the
// worker's perspective; the API layer reads them for operational views.
type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id"`

	// RequestID correlates the event with the job or request that caused it
	RequestID string `json:"request_id"`

	// UserID is the owner of the affected state, empty for system-wide events
	UserID string `json:"user_id"`

	// Type is one of the Type* constants above
	Type string `json:"event_type"`

	// EntityType and EntityID optionally point at the affected row
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`

	// Payload carries event-specific fields serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// New creates an Event with a generated ID, stamped now. The payload is
// serialized immediately so a bad value fails at the emit site.
func New(requestID, userID, eventType string, payload map[string]any) (*Event, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New().String(),
		RequestID: requestID,
		UserID:    userID,
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Sink accepts events for durable appending. Implementations must treat the
// log as append-only; there is no update or delete path.
type Sink interface {
	// Emit appends the given event. Returns an error if the event cannot
	// be persisted.
	Emit(ctx context.Context, event *Event) error
}
