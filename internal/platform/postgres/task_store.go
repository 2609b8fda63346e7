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

// taskColumns is the select list every task scan uses, in scanTask order.
const taskColumns = `id, user_id, title, title_norm, notes, status,
	priority, impact_score, urgency_score, due_date, source_inbox_item_id,
	created_at, updated_at, completed_at, archived_at`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction
// that is initialized and managed by the caller.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, user_id, title, title_norm, notes, status,
			priority, impact_score, urgency_score, due_date,
			source_inbox_item_id, created_at, updated_at, completed_at,
			archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.TitleNorm,
		task.Notes,
		string(task.Status),
		nullInt(task.Priority),
		nullInt(task.ImpactScore),
		nullInt(task.UrgencyScore),
		nullTime(task.DueDate),
		nullString(task.SourceInboxItemID),
		task.CreatedAt,
		task.UpdatedAt,
		nullTime(task.CompletedAt),
		nullTime(task.ArchivedAt),
	)
	if err != nil {
		log.Error("failed to create task", "task_id", task.ID, "error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return task, nil
}

// ListByUser implements store.TaskStore.ListByUser
func (s *PostgresTaskStore) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query tasks", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, title_norm = $2, notes = $3, status = $4,
			priority = $5, impact_score = $6, urgency_score = $7,
			due_date = $8, source_inbox_item_id = $9, updated_at = $10,
			completed_at = $11, archived_at = $12
		WHERE id = $13
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.TitleNorm,
		task.Notes,
		string(task.Status),
		nullInt(task.Priority),
		nullInt(task.ImpactScore),
		nullInt(task.UrgencyScore),
		nullTime(task.DueDate),
		nullString(task.SourceInboxItemID),
		task.UpdatedAt,
		nullTime(task.CompletedAt),
		nullTime(task.ArchivedAt),
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task", "task_id", task.ID, "error", err)
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// ListSourceInboxRefs implements store.TaskStore.ListSourceInboxRefs
func (s *PostgresTaskStore) ListSourceInboxRefs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT source_inbox_item_id
		FROM tasks
		WHERE source_inbox_item_id = ANY($1)
	`

	rows, err := s.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query task inbox references: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan inbox reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox references: %w", err)
	}

	return refs, nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return NewPostgresTaskStore(tx)
}

// scanTask reads one task row. Column order matches taskColumns.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task      domain.Task
		status    string
		priority  sql.NullInt64
		impact    sql.NullInt64
		urgency   sql.NullInt64
		due       sql.NullTime
		sourceID  sql.NullString
		completed sql.NullTime
		archived  sql.NullTime
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.TitleNorm,
		&task.Notes,
		&status,
		&priority,
		&impact,
		&urgency,
		&due,
		&sourceID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completed,
		&archived,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}

	task.Status = parsed
	task.Priority = intPtr(priority)
	task.ImpactScore = intPtr(impact)
	task.UrgencyScore = intPtr(urgency)
	task.DueDate = timePtr(due)
	task.SourceInboxItemID = sourceID.String
	task.CompletedAt = timePtr(completed)
	task.ArchivedAt = timePtr(archived)

	return &task, nil
}
