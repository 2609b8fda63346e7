package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/remote"
	"github.com/phrazzld/augur/internal/store"
)

// ReconcileEngine pulls remote tracker state back into local tasks. Remote
// reads happen outside any transaction; the task rewrites, mapping
// mutations and audit events from one run land in a single commit.
type ReconcileEngine struct {
	db       *sql.DB
	tasks    store.TaskStore
	mappings store.MappingStore
	events   store.EventStore
	tracker  remote.Tracker
	config   Config
	logger   *slog.Logger

	// now is swapped out in tests
	now func() time.Time
}

// NewReconcileEngine creates a reconcile engine. Zero-value config fields
// fall back to the defaults.
func NewReconcileEngine(
	db *sql.DB,
	tasks store.TaskStore,
	mappings store.MappingStore,
	eventStore store.EventStore,
	tracker remote.Tracker,
	config Config,
	log *slog.Logger,
) *ReconcileEngine {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if log == nil {
		log = slog.Default()
	}

	return &ReconcileEngine{
		db:       db,
		tasks:    tasks,
		mappings: mappings,
		events:   eventStore,
		tracker:  tracker,
		config:   config,
		logger:   log.With("component", "reconcile_engine"),
		now:      time.Now,
	}
}

// reconcileChange is one mapping's staged mutation, the task rewrite that
// goes with it when remote state changed anything, and the audit event for
// misses and failures.
type reconcileChange struct {
	task    *domain.Task
	mapping *domain.TrackerMapping
	event   *events.Event
}

// Run walks every mapped task for the user and applies remote state
// locally. attempt only decorates failure events. A remote task that no
// longer exists is recorded as terminal drift on its mapping, never
// recreated or deleted, and does not fail the batch.
func (e *ReconcileEngine) Run(ctx context.Context, userID string, attempt int) error {
	log := logger.FromContextOrDefault(ctx, e.logger).With("user_id", userID)

	now := e.now().UTC()
	rep := report{operation: "reconcile"}
	applied, missing := 0, 0
	var changes []reconcileChange

	for offset := 0; ; offset += e.config.PageSize {
		page, err := e.mappings.ListMappedPage(ctx, userID, e.config.PageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list mappings: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, mapping := range page {
			remoteTask, found, err := e.tracker.GetTask(ctx, mapping.RemoteID)
			if err != nil {
				rep.failure()
				mapping.MarkError(err.Error())
				changes = append(changes, reconcileChange{
					mapping: mapping,
					event:   e.taskFailedEvent(ctx, userID, mapping.LocalTaskID, attempt, err),
				})
				log.Warn("task reconcile failed", "task_id", mapping.LocalTaskID, "error", err)
				continue
			}

			if !found {
				missing++
				mapping.MarkError(domain.RemoteTaskMissing)
				changes = append(changes, reconcileChange{
					mapping: mapping,
					event:   e.remoteMissingEvent(ctx, userID, mapping),
				})
				log.Warn("remote task missing", "task_id", mapping.LocalTaskID, "todoist_task_id", mapping.RemoteID)
				continue
			}

			task, err := e.tasks.GetByID(ctx, mapping.LocalTaskID)
			if err != nil {
				if errors.Is(err, store.ErrTaskNotFound) {
					// Mapping outlived its task; leave the row for the operator.
					log.Warn("mapping references missing local task", "task_id", mapping.LocalTaskID)
					continue
				}
				return fmt.Errorf("failed to load task %s: %w", mapping.LocalTaskID, err)
			}

			changed := applyRemote(task, remoteTask, now)
			mapping.MarkSynced(now)
			ch := reconcileChange{mapping: mapping}
			if len(changed) > 0 {
				applied++
				ch.task = task
				log.Debug("applied remote changes", "task_id", task.ID, "changed_fields", changed)
			}
			changes = append(changes, ch)
		}
	}

	err := store.RunInTransaction(ctx, e.db, func(ctx context.Context, tx *sql.Tx) error {
		tasksTx := e.tasks.WithTx(tx)
		mappingsTx := e.mappings.WithTx(tx)
		eventsTx := e.events.WithTx(tx)

		for _, ch := range changes {
			if ch.task != nil {
				if err := tasksTx.Update(ctx, ch.task); err != nil {
					return fmt.Errorf("failed to update task %s: %w", ch.task.ID, err)
				}
			}
			if err := mappingsTx.Upsert(ctx, ch.mapping); err != nil {
				return fmt.Errorf("failed to upsert mapping for task %s: %w", ch.mapping.LocalTaskID, err)
			}
			if ch.event == nil {
				continue
			}
			if err := eventsTx.Emit(ctx, ch.event); err != nil {
				return fmt.Errorf("failed to record reconcile event: %w", err)
			}
		}

		completed, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypeReconcileCompleted, map[string]any{
			"applied_updates": applied,
			"remote_missing":  missing,
			"any_task_failed": rep.anyFailed(),
		})
		if err != nil {
			return fmt.Errorf("failed to build completion event: %w", err)
		}
		return eventsTx.Emit(ctx, completed)
	})
	if err != nil {
		return fmt.Errorf("failed to commit reconcile batch: %w", err)
	}

	log.Info("reconcile batch committed",
		"applied_updates", applied,
		"remote_missing", missing,
		"failed", rep.failed)
	return rep.err()
}

// applyRemote merges remote tracker state into the local task. The
// completion transition always lands; every other field moves only while
// the task is not done. Returns the fields that actually changed.
func applyRemote(task *domain.Task, remoteTask remote.RemoteTask, now time.Time) []string {
	var changed []string

	if remoteTask.IsCompleted && task.Status != domain.TaskStatusDone {
		task.MarkDone(now)
		changed = append(changed, "status")
	}
	if task.Status == domain.TaskStatusDone {
		return changed
	}

	if remoteTask.Content != "" && remoteTask.Content != task.Title {
		task.Title = remoteTask.Content
		task.TitleNorm = domain.NormalizeTitle(remoteTask.Content)
		changed = append(changed, "title")
	}
	if remoteTask.Description != task.Notes {
		task.Notes = remoteTask.Description
		changed = append(changed, "notes")
	}
	if p := localPriority(remoteTask.Priority); !equalIntPtr(task.Priority, p) {
		task.Priority = p
		changed = append(changed, "priority")
	}
	if d := localDueDate(remoteTask.Due); !equalDatePtr(task.DueDate, d) {
		task.DueDate = d
		changed = append(changed, "due_date")
	}

	if len(changed) > 0 {
		task.UpdatedAt = now
	}
	return changed
}

// taskFailedEvent builds the per-task failure audit record. The attempt
// and retry hints describe the enclosing job, not the single task.
func (e *ReconcileEngine) taskFailedEvent(ctx context.Context, userID, taskID string, attempt int, cause error) *events.Event {
	event, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypeReconcileTaskFailed, map[string]any{
		"task_id":      taskID,
		"error":        cause.Error(),
		"attempt":      attempt,
		"max_attempts": e.config.MaxAttempts,
		"will_retry":   attempt < e.config.MaxAttempts,
	})
	if err != nil {
		e.logger.Error("failed to build task failure event", "task_id", taskID, "error", err)
		return nil
	}
	return event
}

// remoteMissingEvent records the terminal drift left behind by a remote
// deletion.
func (e *ReconcileEngine) remoteMissingEvent(ctx context.Context, userID string, mapping *domain.TrackerMapping) *events.Event {
	event, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypeReconcileRemoteMissing, map[string]any{
		"task_id":         mapping.LocalTaskID,
		"todoist_task_id": mapping.RemoteID,
	})
	if err != nil {
		e.logger.Error("failed to build remote missing event", "task_id", mapping.LocalTaskID, "error", err)
		return nil
	}
	return event
}

// localPriority inverts the tracker's 1-4 urgency scale back into the
// local scale. Out-of-range remote values clear the local priority.
func localPriority(remotePriority int) *int {
	if remotePriority < 1 || remotePriority > 4 {
		return nil
	}
	v := 5 - remotePriority
	return &v
}

// localDueDate parses the tracker's date-only due value. Absent or
// malformed dates clear the local due date.
func localDueDate(due *remote.RemoteDue) *time.Time {
	if due == nil || due.Date == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", due.Date)
	if err != nil {
		return nil
	}
	return &d
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
