package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/jobs"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/remote"
	"github.com/phrazzld/augur/internal/store"
)

// PushEngine mirrors local task state out to the remote tracker. Remote
// calls happen outside any transaction; the mapping mutations and audit
// events from one run land together in a single commit at the end.
type PushEngine struct {
	db       *sql.DB
	mappings store.MappingStore
	events   store.EventStore
	tracker  remote.Tracker
	config   Config
	logger   *slog.Logger

	// now is swapped out in tests
	now func() time.Time
}

// NewPushEngine creates a push engine. Zero-value config fields fall back
// to the defaults.
func NewPushEngine(
	db *sql.DB,
	mappings store.MappingStore,
	eventStore store.EventStore,
	tracker remote.Tracker,
	config Config,
	log *slog.Logger,
) *PushEngine {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.BackoffCap <= 0 {
		config.BackoffCap = defaults.BackoffCap
	}
	if log == nil {
		log = slog.Default()
	}

	return &PushEngine{
		db:       db,
		mappings: mappings,
		events:   eventStore,
		tracker:  tracker,
		config:   config,
		logger:   log.With("component", "push_engine"),
		now:      time.Now,
	}
}

// pushChange is one candidate's staged mapping mutation plus the failure
// event to record alongside it, if any.
type pushChange struct {
	mapping *domain.TrackerMapping
	event   *events.Event
}

// Run pushes every candidate task for the user. attempt is the enclosing
// job's attempt number and only decorates failure events. A failed task
// marks its own mapping and the loop moves on; the batch commits either
// way, and a BatchError surfaces only after the commit.
func (e *PushEngine) Run(ctx context.Context, userID string, attempt int) error {
	log := logger.FromContextOrDefault(ctx, e.logger).With("user_id", userID)

	candidates, err := e.mappings.ListPushCandidates(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list push candidates: %w", err)
	}

	now := e.now().UTC()
	rep := report{operation: "push"}
	changes := make([]pushChange, 0, len(candidates))

	for _, cand := range candidates {
		mapping, ok := cand.MappingRow()
		if !ok {
			mapping, err = domain.NewTrackerMapping(cand.Task.UserID, cand.Task.ID)
			if err != nil {
				return fmt.Errorf("failed to create mapping for task %s: %w", cand.Task.ID, err)
			}
		}

		if pushErr := e.pushOne(ctx, cand.Task, mapping, now); pushErr != nil {
			rep.failure()
			mapping.MarkError(pushErr.Error())
			attemptAt := now
			mapping.LastAttemptAt = &attemptAt
			changes = append(changes, pushChange{
				mapping: mapping,
				event:   e.taskFailedEvent(ctx, userID, cand.Task.ID, attempt, pushErr),
			})
			log.Warn("task push failed", "task_id", cand.Task.ID, "error", pushErr)
			continue
		}

		rep.success()
		changes = append(changes, pushChange{mapping: mapping})
	}

	err = store.RunInTransaction(ctx, e.db, func(ctx context.Context, tx *sql.Tx) error {
		mappingsTx := e.mappings.WithTx(tx)
		eventsTx := e.events.WithTx(tx)

		for _, ch := range changes {
			if err := mappingsTx.Upsert(ctx, ch.mapping); err != nil {
				return fmt.Errorf("failed to upsert mapping for task %s: %w", ch.mapping.LocalTaskID, err)
			}
			if ch.event == nil {
				continue
			}
			if err := eventsTx.Emit(ctx, ch.event); err != nil {
				return fmt.Errorf("failed to record push failure event: %w", err)
			}
		}

		completed, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypeSyncCompleted, map[string]any{
			"synced":          rep.succeeded,
			"failed":          rep.failed,
			"any_task_failed": rep.anyFailed(),
		})
		if err != nil {
			return fmt.Errorf("failed to build completion event: %w", err)
		}
		return eventsTx.Emit(ctx, completed)
	})
	if err != nil {
		return fmt.Errorf("failed to commit push batch: %w", err)
	}

	log.Info("push batch committed", "synced", rep.succeeded, "failed", rep.failed)
	return rep.err()
}

// pushOne performs the remote calls for one task, mutating the mapping in
// place. A remote ID learned from a successful create sticks even when a
// later call in the same pass fails, so a retry updates instead of
// creating a duplicate.
func (e *PushEngine) pushOne(ctx context.Context, task *domain.Task, mapping *domain.TrackerMapping, now time.Time) error {
	payload := remote.TaskPayload{
		Content:     task.Title,
		Description: task.Notes,
		Priority:    remotePriority(task.Priority),
		DueDate:     remoteDueDate(task.DueDate),
	}

	if mapping.RemoteID == "" {
		created, err := e.tracker.CreateTask(ctx, payload)
		if err != nil {
			return err
		}
		mapping.RemoteID = created.ID
		if task.Status == domain.TaskStatusDone {
			if err := e.tracker.CloseTask(ctx, created.ID); err != nil {
				return err
			}
		}
	} else {
		attemptAt := now
		mapping.LastAttemptAt = &attemptAt
		if task.Status == domain.TaskStatusDone {
			if err := e.tracker.CloseTask(ctx, mapping.RemoteID); err != nil {
				return err
			}
		} else {
			if err := e.tracker.UpdateTask(ctx, mapping.RemoteID, payload); err != nil {
				return err
			}
		}
	}

	mapping.MarkSynced(now)
	attemptAt := now
	mapping.LastAttemptAt = &attemptAt
	return nil
}

// taskFailedEvent builds the per-task failure audit record. The attempt
// and retry hints describe the enclosing job, not the single task.
func (e *PushEngine) taskFailedEvent(ctx context.Context, userID, taskID string, attempt int, cause error) *events.Event {
	delay := jobs.BackoffDelay(attempt, e.config.BackoffCap)
	event, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypeSyncTaskFailed, map[string]any{
		"task_id":                  taskID,
		"error":                    cause.Error(),
		"attempt":                  attempt,
		"max_attempts":             e.config.MaxAttempts,
		"will_retry":               attempt < e.config.MaxAttempts,
		"next_retry_delay_seconds": int(delay / time.Second),
	})
	if err != nil {
		e.logger.Error("failed to build task failure event", "task_id", taskID, "error", err)
		return nil
	}
	return event
}

// remotePriority converts the local 1-4 priority (1 highest) to the
// tracker's inverted scale (4 most urgent). Tasks without a priority map
// to the tracker minimum.
func remotePriority(local *int) int {
	if local == nil {
		return 1
	}
	return 5 - *local
}

// remoteDueDate renders a due date in the tracker's date-only format.
func remoteDueDate(due *time.Time) string {
	if due == nil {
		return ""
	}
	return due.UTC().Format("2006-01-02")
}
