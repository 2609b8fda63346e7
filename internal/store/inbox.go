package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/augur/internal/domain"
)

// InboxStore defines the interface for inbox item and action draft persistence.
// Version: 1.0
type InboxStore interface {
	// CreateItem saves a new inbox item.
	// It handles domain validation internally.
	CreateItem(ctx context.Context, item *domain.InboxItem) error

	// GetItemByID retrieves an inbox item by its unique ID.
	// Returns ErrInboxItemNotFound if the item does not exist.
	GetItemByID(ctx context.Context, id string) (*domain.InboxItem, error)

	// CreateDraft saves a new action draft.
	CreateDraft(ctx context.Context, draft *domain.ActionDraft) error

	// ListItemIDsOlderThan returns the IDs of inbox items received before
	// cutoff, ordered by ID. An empty userID scans every user.
	ListItemIDsOlderThan(ctx context.Context, userID string, cutoff time.Time) ([]string, error)

	// ListDraftPinnedRefs returns the inbox item IDs among ids that an
	// unexpired draft still references. Those items must survive compaction
	// until the draft is confirmed, discarded, or expires.
	ListDraftPinnedRefs(ctx context.Context, ids []string, now time.Time) ([]string, error)

	// DeleteItems removes the inbox items with the given IDs in a single
	// statement and reports how many rows were deleted.
	DeleteItems(ctx context.Context, ids []string) (int64, error)

	// WithTx returns a new InboxStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) InboxStore
}
