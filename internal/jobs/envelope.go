package jobs

import (
	"encoding/json"
	"fmt"
)

// Job topic identifiers routed by the dispatcher.
const (
	// TopicPlanRefresh rebuilds and caches a user's plan payload.
	// Payload: {user_id, chat_id}.
	TopicPlanRefresh = "plan.refresh"

	// TopicTodoistSync pushes local task changes to the remote tracker.
	// Payload: {user_id}.
	TopicTodoistSync = "sync.todoist"

	// TopicTodoistReconcile pulls remote tracker state back into local
	// tasks. Payload: {user_id}.
	TopicTodoistReconcile = "sync.todoist.reconcile"

	// TopicMemoryCompact deletes old unreferenced inbox items.
	// Payload: {user_id} (empty user_id compacts all users).
	TopicMemoryCompact = "memory.compact"
)

// Envelope is the wire format for one queued job. Envelopes are ephemeral;
// they exist only in the queue and in retry loops, never in a table of
// their own.
type Envelope struct {
	// JobID identifies this job across retries
	JobID string `json:"job_id"`

	// Topic selects the handler
	Topic string `json:"topic"`

	// Payload carries topic-specific arguments
	Payload json.RawMessage `json:"payload"`

	// Attempt is the current delivery attempt, starting at 1
	Attempt int `json:"attempt,omitempty"`
}

// Decode parses a queued envelope. Producers may omit attempt and payload;
// a missing or non-positive attempt defaults to 1 and a missing payload to
// an empty JSON object.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode job envelope: %w", err)
	}
	if env.Attempt < 1 {
		env.Attempt = 1
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		env.Payload = json.RawMessage("{}")
	}
	return env, nil
}

// Encode serializes the envelope for queueing.
func (e Envelope) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job envelope: %w", err)
	}
	return raw, nil
}

// UserID extracts the user_id field from the payload, if present. Audit
// events emitted for a job are attributed to this user.
func (e Envelope) UserID() string {
	var p struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return ""
	}
	return p.UserID
}
