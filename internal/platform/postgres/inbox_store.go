package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

// PostgresInboxStore implements the store.InboxStore interface using
// PostgreSQL. It owns both the inbox_items table and the action_drafts
// table since the retention compactor reads them together.
type PostgresInboxStore struct {
	db store.DBTX
}

// NewPostgresInboxStore creates a new PostgreSQL implementation of the
// InboxStore interface.
func NewPostgresInboxStore(db store.DBTX) *PostgresInboxStore {
	return &PostgresInboxStore{db: db}
}

// Ensure PostgresInboxStore implements store.InboxStore
var _ store.InboxStore = (*PostgresInboxStore)(nil)

// CreateItem implements store.InboxStore.CreateItem
func (s *PostgresInboxStore) CreateItem(ctx context.Context, item *domain.InboxItem) error {
	log := logger.FromContext(ctx)

	if err := item.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO inbox_items (id, user_id, chat_id, source,
			client_msg_id, message_raw, message_norm, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.ChatID,
		item.Source,
		nullString(item.ClientMsgID),
		item.MessageRaw,
		item.MessageNorm,
		item.ReceivedAt,
	)
	if err != nil {
		log.Error("failed to create inbox item", "item_id", item.ID, "error", err)
		return MapError(err)
	}

	return nil
}

// GetItemByID implements store.InboxStore.GetItemByID
func (s *PostgresInboxStore) GetItemByID(ctx context.Context, id string) (*domain.InboxItem, error) {
	query := `
		SELECT id, user_id, chat_id, source, client_msg_id, message_raw,
			message_norm, received_at
		FROM inbox_items
		WHERE id = $1
	`

	var (
		item        domain.InboxItem
		clientMsgID sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.UserID,
		&item.ChatID,
		&item.Source,
		&clientMsgID,
		&item.MessageRaw,
		&item.MessageNorm,
		&item.ReceivedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInboxItemNotFound
		}
		return nil, fmt.Errorf("failed to get inbox item: %w", MapError(err))
	}

	item.ClientMsgID = clientMsgID.String
	return &item, nil
}

// CreateDraft implements store.InboxStore.CreateDraft
func (s *PostgresInboxStore) CreateDraft(ctx context.Context, draft *domain.ActionDraft) error {
	log := logger.FromContext(ctx)

	if err := draft.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO action_drafts (id, user_id, chat_id,
			source_inbox_item_id, source_message, proposal_json, status,
			expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		draft.ID,
		draft.UserID,
		draft.ChatID,
		nullString(draft.SourceInboxItemID),
		draft.SourceMessage,
		draft.ProposalJSON,
		string(draft.Status),
		draft.ExpiresAt,
		draft.CreatedAt,
		draft.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create action draft", "draft_id", draft.ID, "error", err)
		return MapError(err)
	}

	return nil
}

// ListItemIDsOlderThan implements store.InboxStore.ListItemIDsOlderThan
func (s *PostgresInboxStore) ListItemIDsOlderThan(ctx context.Context, userID string, cutoff time.Time) ([]string, error) {
	log := logger.FromContext(ctx)

	query := `SELECT id FROM inbox_items WHERE received_at < $1`
	args := []any{cutoff}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query old inbox items", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query old inbox items: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan inbox item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox item ids: %w", err)
	}

	return ids, nil
}

// ListDraftPinnedRefs implements store.InboxStore.ListDraftPinnedRefs
func (s *PostgresInboxStore) ListDraftPinnedRefs(ctx context.Context, ids []string, now time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT source_inbox_item_id
		FROM action_drafts
		WHERE source_inbox_item_id = ANY($1)
			AND status = 'draft'
			AND expires_at > $2
	`

	rows, err := s.db.QueryContext(ctx, query, ids, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query draft pinned references: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan draft reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draft references: %w", err)
	}

	return refs, nil
}

// DeleteItems implements store.InboxStore.DeleteItems
func (s *PostgresInboxStore) DeleteItems(ctx context.Context, ids []string) (int64, error) {
	log := logger.FromContext(ctx)

	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM inbox_items WHERE id = ANY($1)`

	result, err := s.db.ExecContext(ctx, query, ids)
	if err != nil {
		log.Error("failed to delete inbox items", "count", len(ids), "error", err)
		return 0, fmt.Errorf("failed to delete inbox items: %w", MapError(err))
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted inbox items: %w", err)
	}

	return deleted, nil
}

// WithTx implements store.InboxStore.WithTx
func (s *PostgresInboxStore) WithTx(tx *sql.Tx) store.InboxStore {
	return NewPostgresInboxStore(tx)
}
