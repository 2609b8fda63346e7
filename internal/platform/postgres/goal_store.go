package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

const goalColumns = `id, user_id, title, title_norm, description, status,
	horizon, target_date, created_at, updated_at, archived_at`

// PostgresGoalStore implements the store.GoalStore interface using PostgreSQL.
type PostgresGoalStore struct {
	db store.DBTX
}

// NewPostgresGoalStore creates a new PostgreSQL implementation of the
// GoalStore interface.
func NewPostgresGoalStore(db store.DBTX) *PostgresGoalStore {
	return &PostgresGoalStore{db: db}
}

// Ensure PostgresGoalStore implements store.GoalStore
var _ store.GoalStore = (*PostgresGoalStore)(nil)

// Create implements store.GoalStore.Create
func (s *PostgresGoalStore) Create(ctx context.Context, goal *domain.Goal) error {
	log := logger.FromContext(ctx)

	if err := goal.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO goals (id, user_id, title, title_norm, description,
			status, horizon, target_date, created_at, updated_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.TitleNorm,
		goal.Description,
		string(goal.Status),
		goal.Horizon,
		nullTime(goal.TargetDate),
		goal.CreatedAt,
		goal.UpdatedAt,
		nullTime(goal.ArchivedAt),
	)
	if err != nil {
		log.Error("failed to create goal", "goal_id", goal.ID, "error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.GoalStore.GetByID
func (s *PostgresGoalStore) GetByID(ctx context.Context, id string) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1`

	goal, err := scanGoal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGoalNotFound
		}
		return nil, fmt.Errorf("failed to get goal: %w", MapError(err))
	}
	return goal, nil
}

// ListByUser implements store.GoalStore.ListByUser
func (s *PostgresGoalStore) ListByUser(ctx context.Context, userID string) ([]*domain.Goal, error) {
	log := logger.FromContext(ctx)

	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query goals", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query goals: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	goals := make([]*domain.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal row: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goal rows: %w", err)
	}

	return goals, nil
}

// Update implements store.GoalStore.Update
func (s *PostgresGoalStore) Update(ctx context.Context, goal *domain.Goal) error {
	log := logger.FromContext(ctx)

	if err := goal.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE goals
		SET title = $1, title_norm = $2, description = $3, status = $4,
			horizon = $5, target_date = $6, updated_at = $7, archived_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(ctx, query,
		goal.Title,
		goal.TitleNorm,
		goal.Description,
		string(goal.Status),
		goal.Horizon,
		nullTime(goal.TargetDate),
		goal.UpdatedAt,
		nullTime(goal.ArchivedAt),
		goal.ID,
	)
	if err != nil {
		log.Error("failed to update goal", "goal_id", goal.ID, "error", err)
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrGoalNotFound)
}

// WithTx implements store.GoalStore.WithTx
func (s *PostgresGoalStore) WithTx(tx *sql.Tx) store.GoalStore {
	return NewPostgresGoalStore(tx)
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var (
		goal     domain.Goal
		status   string
		target   sql.NullTime
		archived sql.NullTime
	)

	if err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Title,
		&goal.TitleNorm,
		&goal.Description,
		&status,
		&goal.Horizon,
		&target,
		&goal.CreatedAt,
		&goal.UpdatedAt,
		&archived,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseGoalStatus(status)
	if err != nil {
		return nil, err
	}

	goal.Status = parsed
	goal.TargetDate = timePtr(target)
	goal.ArchivedAt = timePtr(archived)

	return &goal, nil
}
