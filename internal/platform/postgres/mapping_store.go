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

const mappingColumns = `id, user_id, local_task_id, todoist_task_id,
	sync_state, last_synced_at, last_attempt_at, last_error`

// PostgresMappingStore implements the store.MappingStore interface using
// PostgreSQL. The todoist_task_map table keys rows by (user_id,
// local_task_id); an empty remote ID is stored as NULL so the push
// candidate predicate can test it directly.
type PostgresMappingStore struct {
	db store.DBTX
}

// NewPostgresMappingStore creates a new PostgreSQL implementation of the
// MappingStore interface.
func NewPostgresMappingStore(db store.DBTX) *PostgresMappingStore {
	return &PostgresMappingStore{db: db}
}

// Ensure PostgresMappingStore implements store.MappingStore
var _ store.MappingStore = (*PostgresMappingStore)(nil)

// Upsert implements store.MappingStore.Upsert
func (s *PostgresMappingStore) Upsert(ctx context.Context, mapping *domain.TrackerMapping) error {
	log := logger.FromContext(ctx)

	if err := mapping.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO todoist_task_map (id, user_id, local_task_id,
			todoist_task_id, sync_state, last_synced_at, last_attempt_at,
			last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, local_task_id) DO UPDATE
		SET todoist_task_id = EXCLUDED.todoist_task_id,
			sync_state = EXCLUDED.sync_state,
			last_synced_at = EXCLUDED.last_synced_at,
			last_attempt_at = EXCLUDED.last_attempt_at,
			last_error = EXCLUDED.last_error
	`

	_, err := s.db.ExecContext(ctx, query,
		mapping.ID,
		mapping.UserID,
		mapping.LocalTaskID,
		nullString(mapping.RemoteID),
		string(mapping.SyncState),
		nullTime(mapping.LastSyncedAt),
		nullTime(mapping.LastAttemptAt),
		nullString(mapping.LastError),
	)
	if err != nil {
		log.Error("failed to upsert tracker mapping",
			"mapping_id", mapping.ID,
			"local_task_id", mapping.LocalTaskID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByLocalTaskID implements store.MappingStore.GetByLocalTaskID
func (s *PostgresMappingStore) GetByLocalTaskID(ctx context.Context, userID, localTaskID string) (*domain.TrackerMapping, error) {
	query := `SELECT ` + mappingColumns + `
		FROM todoist_task_map
		WHERE user_id = $1 AND local_task_id = $2`

	mapping, err := scanMapping(s.db.QueryRowContext(ctx, query, userID, localTaskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to get tracker mapping: %w", MapError(err))
	}
	return mapping, nil
}

// ListPushCandidates implements store.MappingStore.ListPushCandidates.
// One joined query finds every task whose local state has not reached the
// remote tracker; the LEFT JOIN keeps never-mapped tasks in the result
// with NULL mapping columns.
func (s *PostgresMappingStore) ListPushCandidates(ctx context.Context, userID string) ([]store.PushCandidate, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT t.id, t.user_id, t.title, t.title_norm, t.notes, t.status,
			t.priority, t.impact_score, t.urgency_score, t.due_date,
			t.source_inbox_item_id, t.created_at, t.updated_at,
			t.completed_at, t.archived_at,
			m.id, m.user_id, m.local_task_id, m.todoist_task_id,
			m.sync_state, m.last_synced_at, m.last_attempt_at, m.last_error
		FROM tasks t
		LEFT JOIN todoist_task_map m
			ON m.user_id = t.user_id AND m.local_task_id = t.id
		WHERE t.user_id = $1
			AND (m.id IS NULL
				OR m.todoist_task_id IS NULL
				OR m.sync_state <> 'synced'
				OR m.last_synced_at IS NULL
				OR t.updated_at > m.last_synced_at)
		ORDER BY t.id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query push candidates", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query push candidates: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]store.PushCandidate, 0)
	for rows.Next() {
		candidate, err := scanPushCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan push candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push candidates: %w", err)
	}

	return candidates, nil
}

// ListMappedPage implements store.MappingStore.ListMappedPage
func (s *PostgresMappingStore) ListMappedPage(ctx context.Context, userID string, limit, offset int) ([]*domain.TrackerMapping, error) {
	log := logger.FromContext(ctx)

	query := `SELECT ` + mappingColumns + `
		FROM todoist_task_map
		WHERE user_id = $1 AND todoist_task_id IS NOT NULL
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query mapped page", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query mapped page: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	mappings := make([]*domain.TrackerMapping, 0)
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapping rows: %w", err)
	}

	return mappings, nil
}

// Status implements store.MappingStore.Status
func (s *PostgresMappingStore) Status(ctx context.Context, userID string) (*store.MappingStatus, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE sync_state = 'pending'),
			COUNT(*) FILTER (WHERE sync_state = 'error'),
			MAX(last_synced_at),
			MAX(last_attempt_at)
		FROM todoist_task_map
		WHERE user_id = $1
	`

	var (
		status      store.MappingStatus
		lastSynced  sql.NullTime
		lastAttempt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&status.TotalMapped,
		&status.PendingSync,
		&status.ErrorCount,
		&lastSynced,
		&lastAttempt,
	)
	if err != nil {
		log.Error("failed to aggregate mapping status", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to aggregate mapping status: %w", MapError(err))
	}

	status.LastSyncedAt = timePtr(lastSynced)
	status.LastAttemptAt = timePtr(lastAttempt)

	return &status, nil
}

// WithTx implements store.MappingStore.WithTx
func (s *PostgresMappingStore) WithTx(tx *sql.Tx) store.MappingStore {
	return NewPostgresMappingStore(tx)
}

func scanMapping(row rowScanner) (*domain.TrackerMapping, error) {
	var (
		mapping     domain.TrackerMapping
		remoteID    sql.NullString
		state       string
		lastSynced  sql.NullTime
		lastAttempt sql.NullTime
		lastError   sql.NullString
	)

	if err := row.Scan(
		&mapping.ID,
		&mapping.UserID,
		&mapping.LocalTaskID,
		&remoteID,
		&state,
		&lastSynced,
		&lastAttempt,
		&lastError,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseSyncState(state)
	if err != nil {
		return nil, err
	}

	mapping.RemoteID = remoteID.String
	mapping.SyncState = parsed
	mapping.LastSyncedAt = timePtr(lastSynced)
	mapping.LastAttemptAt = timePtr(lastAttempt)
	mapping.LastError = lastError.String

	return &mapping, nil
}

// scanPushCandidate reads one joined task+mapping row. Every mapping
// column scans as nullable; a NULL mapping id means the task has never
// been mapped and Candidate.Mapping stays nil.
func scanPushCandidate(row rowScanner) (store.PushCandidate, error) {
	var (
		task         domain.Task
		taskStatus   string
		priority     sql.NullInt64
		impact       sql.NullInt64
		urgency      sql.NullInt64
		due          sql.NullTime
		sourceID     sql.NullString
		completed    sql.NullTime
		archived     sql.NullTime
		mappingID    sql.NullString
		mappingUser  sql.NullString
		localTaskID  sql.NullString
		remoteID     sql.NullString
		syncState    sql.NullString
		lastSynced   sql.NullTime
		lastAttempt  sql.NullTime
		mappingError sql.NullString
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.TitleNorm,
		&task.Notes,
		&taskStatus,
		&priority,
		&impact,
		&urgency,
		&due,
		&sourceID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completed,
		&archived,
		&mappingID,
		&mappingUser,
		&localTaskID,
		&remoteID,
		&syncState,
		&lastSynced,
		&lastAttempt,
		&mappingError,
	); err != nil {
		return store.PushCandidate{}, err
	}

	parsedStatus, err := domain.ParseTaskStatus(taskStatus)
	if err != nil {
		return store.PushCandidate{}, err
	}

	task.Status = parsedStatus
	task.Priority = intPtr(priority)
	task.ImpactScore = intPtr(impact)
	task.UrgencyScore = intPtr(urgency)
	task.DueDate = timePtr(due)
	task.SourceInboxItemID = sourceID.String
	task.CompletedAt = timePtr(completed)
	task.ArchivedAt = timePtr(archived)

	candidate := store.PushCandidate{Task: &task}
	if !mappingID.Valid {
		return candidate, nil
	}

	parsedState, err := domain.ParseSyncState(syncState.String)
	if err != nil {
		return store.PushCandidate{}, err
	}

	candidate.Mapping = &domain.TrackerMapping{
		ID:            mappingID.String,
		UserID:        mappingUser.String,
		LocalTaskID:   localTaskID.String,
		RemoteID:      remoteID.String,
		SyncState:     parsedState,
		LastSyncedAt:  timePtr(lastSynced),
		LastAttemptAt: timePtr(lastAttempt),
		LastError:     mappingError.String,
	}

	return candidate, nil
}
