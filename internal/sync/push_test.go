package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/remote"
	"github.com/phrazzld/augur/internal/store"
)

type pushHarness struct {
	engine   *PushEngine
	mock     sqlmock.Sqlmock
	mappings *fakeMappingStore
	events   *fakeEventStore
	tracker  *fakeTracker
}

func newPushHarness(t *testing.T) *pushHarness {
	t.Helper()
	db, mock := newMockDB(t)
	mappings := &fakeMappingStore{}
	eventStore := &fakeEventStore{}
	tracker := newFakeTracker()

	engine := NewPushEngine(db, mappings, eventStore, tracker, Config{}, quietLogger())
	engine.now = func() time.Time { return testNow }

	return &pushHarness{
		engine:   engine,
		mock:     mock,
		mappings: mappings,
		events:   eventStore,
		tracker:  tracker,
	}
}

func TestPushCreatesUnmappedTask(t *testing.T) {
	h := newPushHarness(t)
	task := localTask("tsk_1", "Write launch brief")
	task.Notes = "gather numbers first"
	task.Priority = intPtr(2)
	task.DueDate = datePtr(2026, time.March, 14)
	h.mappings.candidates = []store.PushCandidate{{Task: task}}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	ctx := events.WithRequestID(context.Background(), "job_j1")
	require.NoError(t, h.engine.Run(ctx, "usr_1", 1))

	require.Equal(t, []string{"create:Write launch brief"}, h.tracker.calls)
	require.Len(t, h.tracker.created, 1)
	assert.Equal(t, remote.TaskPayload{
		Content:     "Write launch brief",
		Description: "gather numbers first",
		Priority:    3,
		DueDate:     "2026-03-14",
	}, h.tracker.created[0])

	require.Len(t, h.mappings.upserts, 1)
	mapping := h.mappings.upserts[0]
	assert.Equal(t, "usr_1", mapping.UserID)
	assert.Equal(t, "tsk_1", mapping.LocalTaskID)
	assert.Equal(t, "rem_1", mapping.RemoteID)
	assert.Equal(t, domain.SyncStateSynced, mapping.SyncState)
	assert.Empty(t, mapping.LastError)
	require.NotNil(t, mapping.LastSyncedAt)
	assert.Equal(t, testNow, *mapping.LastSyncedAt)
	require.NotNil(t, mapping.LastAttemptAt)
	assert.Equal(t, testNow, *mapping.LastAttemptAt)

	require.Len(t, h.events.emitted, 1)
	completed := h.events.emitted[0]
	assert.Equal(t, events.TypeSyncCompleted, completed.Type)
	assert.Equal(t, "job_j1", completed.RequestID)
	assert.Equal(t, "usr_1", completed.UserID)
	assert.Equal(t, map[string]any{
		"synced":          float64(1),
		"failed":          float64(0),
		"any_task_failed": false,
	}, decodePayload(t, completed))

	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPushClosesDoneTaskRightAfterCreate(t *testing.T) {
	h := newPushHarness(t)
	task := localTask("tsk_1", "Ship release notes")
	task.Status = domain.TaskStatusDone
	h.mappings.candidates = []store.PushCandidate{{Task: task}}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	require.NoError(t, h.engine.Run(context.Background(), "usr_1", 1))

	assert.Equal(t, []string{"create:Ship release notes", "close:rem_1"}, h.tracker.calls)
	require.Len(t, h.mappings.upserts, 1)
	assert.Equal(t, "rem_1", h.mappings.upserts[0].RemoteID)
	assert.Equal(t, domain.SyncStateSynced, h.mappings.upserts[0].SyncState)
}

func TestPushUpdatesMappedOpenTask(t *testing.T) {
	h := newPushHarness(t)
	task := localTask("tsk_1", "Refine onboarding copy")
	mapping := mappedRow("map_1", "tsk_1", "rem_9")
	mapping.SyncState = domain.SyncStatePending
	h.mappings.candidates = []store.PushCandidate{{Task: task, Mapping: mapping}}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	require.NoError(t, h.engine.Run(context.Background(), "usr_1", 1))

	assert.Equal(t, []string{"update:rem_9"}, h.tracker.calls)
	assert.Equal(t, "Refine onboarding copy", h.tracker.updated["rem_9"].Content)
	require.Len(t, h.mappings.upserts, 1)
	assert.Same(t, mapping, h.mappings.upserts[0])
	assert.Equal(t, domain.SyncStateSynced, mapping.SyncState)
}

func TestPushClosesMappedDoneTask(t *testing.T) {
	h := newPushHarness(t)
	task := localTask("tsk_1", "Archive old boards")
	task.Status = domain.TaskStatusDone
	h.mappings.candidates = []store.PushCandidate{
		{Task: task, Mapping: mappedRow("map_1", "tsk_1", "rem_9")},
	}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	require.NoError(t, h.engine.Run(context.Background(), "usr_1", 1))

	assert.Equal(t, []string{"close:rem_9"}, h.tracker.calls)
}

func TestPushKeepsRemoteIDWhenCloseFails(t *testing.T) {
	h := newPushHarness(t)
	task := localTask("tsk_1", "Ship release notes")
	task.Status = domain.TaskStatusDone
	h.mappings.candidates = []store.PushCandidate{{Task: task}}
	h.tracker.closeErr["rem_1"] = &remote.TransientError{StatusCode: 503, Excerpt: "overloaded"}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	err := h.engine.Run(context.Background(), "usr_1", 2)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "push", batchErr.Operation)
	assert.Equal(t, 1, batchErr.Failed)

	// The created remote id must survive the failure so the retry updates
	// instead of creating a duplicate.
	require.Len(t, h.mappings.upserts, 1)
	mapping := h.mappings.upserts[0]
	assert.Equal(t, "rem_1", mapping.RemoteID)
	assert.Equal(t, domain.SyncStateError, mapping.SyncState)
	assert.Equal(t, "tracker returned status 503: overloaded", mapping.LastError)
	assert.Nil(t, mapping.LastSyncedAt)
	require.NotNil(t, mapping.LastAttemptAt)
	assert.Equal(t, testNow, *mapping.LastAttemptAt)

	failures := h.events.byType(events.TypeSyncTaskFailed)
	require.Len(t, failures, 1)
	payload := decodePayload(t, failures[0])
	assert.Equal(t, "tsk_1", payload["task_id"])
	assert.Equal(t, "tracker returned status 503: overloaded", payload["error"])
	assert.Equal(t, float64(2), payload["attempt"])
	assert.Equal(t, float64(5), payload["max_attempts"])
	assert.Equal(t, true, payload["will_retry"])
	assert.Equal(t, float64(4), payload["next_retry_delay_seconds"])

	completed := h.events.byType(events.TypeSyncCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, map[string]any{
		"synced":          float64(0),
		"failed":          float64(1),
		"any_task_failed": true,
	}, decodePayload(t, completed[0]))

	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPushIsolatesTaskFailures(t *testing.T) {
	h := newPushHarness(t)
	broken := localTask("tsk_1", "Broken task")
	healthy := localTask("tsk_2", "Healthy task")
	h.mappings.candidates = []store.PushCandidate{{Task: broken}, {Task: healthy}}
	h.tracker.createErr["Broken task"] = &remote.TransientError{StatusCode: 500}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	err := h.engine.Run(context.Background(), "usr_1", 1)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Failed)

	assert.Equal(t, []string{"create:Broken task", "create:Healthy task"}, h.tracker.calls)

	require.Len(t, h.mappings.upserts, 2)
	assert.Equal(t, "", h.mappings.upserts[0].RemoteID)
	assert.Equal(t, domain.SyncStateError, h.mappings.upserts[0].SyncState)
	assert.Equal(t, domain.SyncStateSynced, h.mappings.upserts[1].SyncState)

	completed := h.events.byType(events.TypeSyncCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, map[string]any{
		"synced":          float64(1),
		"failed":          float64(1),
		"any_task_failed": true,
	}, decodePayload(t, completed[0]))
}

func TestPushZeroCandidatesCommitsAndEmits(t *testing.T) {
	h := newPushHarness(t)
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	require.NoError(t, h.engine.Run(context.Background(), "usr_1", 1))

	assert.Empty(t, h.tracker.calls)
	assert.Empty(t, h.mappings.upserts)
	require.Len(t, h.events.emitted, 1)
	assert.Equal(t, map[string]any{
		"synced":          float64(0),
		"failed":          float64(0),
		"any_task_failed": false,
	}, decodePayload(t, h.events.emitted[0]))
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPushPropagatesListError(t *testing.T) {
	h := newPushHarness(t)
	h.mappings.listErr = errors.New("connection refused")

	err := h.engine.Run(context.Background(), "usr_1", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list push candidates")
	assert.Empty(t, h.events.emitted)
}

func TestPushCommitFailureIsNotABatchError(t *testing.T) {
	h := newPushHarness(t)
	h.mappings.candidates = []store.PushCandidate{{Task: localTask("tsk_1", "Write launch brief")}}
	h.mock.ExpectBegin()
	h.mock.ExpectCommit().WillReturnError(errors.New("deadlock detected"))

	err := h.engine.Run(context.Background(), "usr_1", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit push batch")
	var batchErr *BatchError
	assert.False(t, errors.As(err, &batchErr))
}

func TestPushPayloadMapping(t *testing.T) {
	t.Run("priority inverts onto the tracker scale", func(t *testing.T) {
		assert.Equal(t, 1, remotePriority(nil))
		assert.Equal(t, 4, remotePriority(intPtr(1)))
		assert.Equal(t, 3, remotePriority(intPtr(2)))
		assert.Equal(t, 1, remotePriority(intPtr(4)))
	})

	t.Run("due date renders date-only", func(t *testing.T) {
		assert.Equal(t, "", remoteDueDate(nil))
		assert.Equal(t, "2026-03-14", remoteDueDate(datePtr(2026, time.March, 14)))
	})
}
