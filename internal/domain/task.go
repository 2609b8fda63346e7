package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusOpen     TaskStatus = "open"
	TaskStatusBlocked  TaskStatus = "blocked"
	TaskStatusDone     TaskStatus = "done"
	TaskStatusArchived TaskStatus = "archived"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID = errors.New("task user ID cannot be empty")
	ErrEmptyTaskTitle  = errors.New("task title cannot be empty")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("task priority must be between 1 and 4")
	ErrInvalidScore    = errors.New("task score must be between 1 and 5")
)

// Task is a single actionable item owned by a user. The scheduling and
// sync engines only mutate existing tasks; creation happens upstream in
// the capture pipeline.
type Task struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Title             string     `json:"title"`
	TitleNorm         string     `json:"title_norm"`
	Notes             string     `json:"notes,omitempty"`
	Status            TaskStatus `json:"status"`
	Priority          *int       `json:"priority,omitempty"`
	ImpactScore       *int       `json:"impact_score,omitempty"`
	UrgencyScore      *int       `json:"urgency_score,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	SourceInboxItemID string     `json:"source_inbox_item_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
}

// NewTask creates an open Task with a generated ID and normalized title.
// Returns an error if validation fails.
func NewTask(userID, title string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		TitleNorm: NormalizeTitle(title),
		Status:    TaskStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}

	if t.UserID == "" {
		return ErrEmptyTaskUserID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidStatus
	}

	if t.Priority != nil && (*t.Priority < 1 || *t.Priority > 4) {
		return ErrInvalidPriority
	}

	if t.ImpactScore != nil && (*t.ImpactScore < 1 || *t.ImpactScore > 5) {
		return ErrInvalidScore
	}

	if t.UrgencyScore != nil && (*t.UrgencyScore < 1 || *t.UrgencyScore > 5) {
		return ErrInvalidScore
	}

	return nil
}

// MarkDone sets the task to done and stamps completion and update times.
func (t *Task) MarkDone(now time.Time) {
	t.Status = TaskStatusDone
	completed := now
	t.CompletedAt = &completed
	t.UpdatedAt = now
}

// ParseTaskStatus converts a stored string into a TaskStatus.
// Unknown values are an error rather than a silent default, so rows
// written by newer code surface immediately instead of being misread.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !isValidTaskStatus(status) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusOpen, TaskStatusBlocked, TaskStatusDone, TaskStatusArchived:
		return true
	default:
		return false
	}
}

// NormalizeTitle lowercases and collapses whitespace for duplicate lookups.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
