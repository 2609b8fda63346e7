package compact

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

// DefaultRetentionDays is how long inbox items are kept before they
// become eligible for compaction.
const DefaultRetentionDays = 30

// Compactor deletes inbox items older than the retention window, keeping
// rows that tasks or live drafts still reference. Counting, deletion and
// the audit event all happen inside one transaction.
type Compactor struct {
	db            *sql.DB
	inbox         store.InboxStore
	tasks         store.TaskStore
	events        store.EventStore
	retentionDays int
	logger        *slog.Logger

	// now is swapped out in tests
	now func() time.Time
}

// NewCompactor creates a compactor. A non-positive retentionDays falls
// back to DefaultRetentionDays.
func NewCompactor(
	db *sql.DB,
	inbox store.InboxStore,
	tasks store.TaskStore,
	eventStore store.EventStore,
	retentionDays int,
	log *slog.Logger,
) *Compactor {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if log == nil {
		log = slog.Default()
	}

	return &Compactor{
		db:            db,
		inbox:         inbox,
		tasks:         tasks,
		events:        eventStore,
		retentionDays: retentionDays,
		logger:        log.With("component", "compactor"),
		now:           time.Now,
	}
}

// Run compacts one user's inbox, or every user's when userID is empty.
// The completion event is emitted unconditionally, zeros included.
func (c *Compactor) Run(ctx context.Context, userID string) error {
	log := logger.FromContextOrDefault(ctx, c.logger)
	if userID != "" {
		log = log.With("user_id", userID)
	}

	now := c.now().UTC()
	cutoff := now.AddDate(0, 0, -c.retentionDays)

	var eligible, skipped int
	var deleted int64

	err := store.RunInTransaction(ctx, c.db, func(ctx context.Context, tx *sql.Tx) error {
		inboxTx := c.inbox.WithTx(tx)
		tasksTx := c.tasks.WithTx(tx)
		eventsTx := c.events.WithTx(tx)

		old, err := inboxTx.ListItemIDsOlderThan(ctx, userID, cutoff)
		if err != nil {
			return fmt.Errorf("failed to list old inbox items: %w", err)
		}
		eligible = len(old)

		deletable := old
		if len(old) > 0 {
			taskRefs, err := tasksTx.ListSourceInboxRefs(ctx, old)
			if err != nil {
				return fmt.Errorf("failed to list task references: %w", err)
			}
			draftRefs, err := inboxTx.ListDraftPinnedRefs(ctx, old, now)
			if err != nil {
				return fmt.Errorf("failed to list draft references: %w", err)
			}
			deletable = subtract(old, taskRefs, draftRefs)
		}
		skipped = eligible - len(deletable)

		if len(deletable) > 0 {
			deleted, err = inboxTx.DeleteItems(ctx, deletable)
			if err != nil {
				return fmt.Errorf("failed to delete inbox items: %w", err)
			}
		}

		event, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypeMemoryCompactionComplete, map[string]any{
			"eligible_old_rows":       eligible,
			"skipped_referenced_rows": skipped,
			"deleted_rows":            deleted,
		})
		if err != nil {
			return fmt.Errorf("failed to build compaction event: %w", err)
		}
		return eventsTx.Emit(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to commit compaction: %w", err)
	}

	log.Info("memory compaction completed",
		"eligible_old_rows", eligible,
		"skipped_referenced_rows", skipped,
		"deleted_rows", deleted)
	return nil
}

// subtract returns the members of ids absent from every exclusion list,
// preserving input order.
func subtract(ids []string, exclusions ...[]string) []string {
	drop := make(map[string]struct{})
	for _, list := range exclusions {
		for _, id := range list {
			drop[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, excluded := drop[id]; !excluded {
			out = append(out, id)
		}
	}
	return out
}
