package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GoalStatus represents the lifecycle state of a goal.
type GoalStatus string

// Possible goal status values
const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusPaused   GoalStatus = "paused"
	GoalStatusDone     GoalStatus = "done"
	GoalStatusArchived GoalStatus = "archived"
)

// Common validation errors for Goal
var (
	ErrEmptyGoalID     = errors.New("goal ID cannot be empty")
	ErrEmptyGoalUserID = errors.New("goal user ID cannot be empty")
	ErrEmptyGoalTitle  = errors.New("goal title cannot be empty")
	ErrInvalidGoal     = errors.New("invalid goal status")
)

// Goal is a longer-horizon objective tasks can align with. Only active
// goals contribute to plan scoring.
type Goal struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	TitleNorm   string     `json:"title_norm"`
	Description string     `json:"description,omitempty"`
	Status      GoalStatus `json:"status"`
	Horizon     string     `json:"horizon,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// NewGoal creates an active Goal with a generated ID and normalized title.
func NewGoal(userID, title string) (*Goal, error) {
	now := time.Now().UTC()
	goal := &Goal{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		TitleNorm: NormalizeTitle(title),
		Status:    GoalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := goal.Validate(); err != nil {
		return nil, err
	}

	return goal, nil
}

// Validate checks if the Goal has valid data.
func (g *Goal) Validate() error {
	if g.ID == "" {
		return ErrEmptyGoalID
	}

	if g.UserID == "" {
		return ErrEmptyGoalUserID
	}

	if g.Title == "" {
		return ErrEmptyGoalTitle
	}

	if !isValidGoalStatus(g.Status) {
		return ErrInvalidGoal
	}

	return nil
}

// ParseGoalStatus converts a stored string into a GoalStatus, failing on
// unknown values.
func ParseGoalStatus(s string) (GoalStatus, error) {
	status := GoalStatus(s)
	if !isValidGoalStatus(status) {
		return "", fmt.Errorf("%w: %q", ErrInvalidGoal, s)
	}
	return status, nil
}

func isValidGoalStatus(status GoalStatus) bool {
	switch status {
	case GoalStatusActive, GoalStatusPaused, GoalStatusDone, GoalStatusArchived:
		return true
	default:
		return false
	}
}
