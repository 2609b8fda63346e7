package sync

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/remote"
	"github.com/phrazzld/augur/internal/store"
)

// testNow pins the clock so stamped times are assertable.
var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMockDB returns a database handle whose begin/commit/rollback calls
// are scripted by the returned mock. The engine's store fakes ignore the
// transaction handle, so the mock only verifies transaction boundaries.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeTracker scripts remote behavior per task and records every call in
// order.
type fakeTracker struct {
	calls   []string
	created []remote.TaskPayload
	updated map[string]remote.TaskPayload

	createErr map[string]error // keyed by payload content
	updateErr map[string]error // keyed by remote id
	closeErr  map[string]error // keyed by remote id
	getErr    map[string]error // keyed by remote id
	remotes   map[string]remote.RemoteTask

	nextID int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		updated:   map[string]remote.TaskPayload{},
		createErr: map[string]error{},
		updateErr: map[string]error{},
		closeErr:  map[string]error{},
		getErr:    map[string]error{},
		remotes:   map[string]remote.RemoteTask{},
	}
}

func (f *fakeTracker) CreateTask(_ context.Context, payload remote.TaskPayload) (remote.RemoteTask, error) {
	f.calls = append(f.calls, "create:"+payload.Content)
	if err := f.createErr[payload.Content]; err != nil {
		return remote.RemoteTask{}, err
	}
	f.created = append(f.created, payload)
	f.nextID++
	return remote.RemoteTask{ID: fmt.Sprintf("rem_%d", f.nextID), Content: payload.Content}, nil
}

func (f *fakeTracker) UpdateTask(_ context.Context, remoteID string, payload remote.TaskPayload) error {
	f.calls = append(f.calls, "update:"+remoteID)
	if err := f.updateErr[remoteID]; err != nil {
		return err
	}
	f.updated[remoteID] = payload
	return nil
}

func (f *fakeTracker) CloseTask(_ context.Context, remoteID string) error {
	f.calls = append(f.calls, "close:"+remoteID)
	return f.closeErr[remoteID]
}

func (f *fakeTracker) GetTask(_ context.Context, remoteID string) (remote.RemoteTask, bool, error) {
	f.calls = append(f.calls, "get:"+remoteID)
	if err := f.getErr[remoteID]; err != nil {
		return remote.RemoteTask{}, false, err
	}
	rt, ok := f.remotes[remoteID]
	return rt, ok, nil
}

// fakeMappingStore serves scripted candidates and pages and records
// upserts. WithTx returns the same fake, so staged writes are visible
// regardless of transaction plumbing.
type fakeMappingStore struct {
	store.MappingStore

	candidates []store.PushCandidate
	mapped     []*domain.TrackerMapping
	status     *store.MappingStatus

	listErr   error
	upsertErr error
	statusErr error

	upserts     []*domain.TrackerMapping
	pageOffsets []int
}

func (f *fakeMappingStore) ListPushCandidates(_ context.Context, _ string) ([]store.PushCandidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.candidates, nil
}

func (f *fakeMappingStore) ListMappedPage(_ context.Context, _ string, limit, offset int) ([]*domain.TrackerMapping, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.pageOffsets = append(f.pageOffsets, offset)
	if offset >= len(f.mapped) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.mapped) {
		end = len(f.mapped)
	}
	return f.mapped[offset:end], nil
}

func (f *fakeMappingStore) Upsert(_ context.Context, mapping *domain.TrackerMapping) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, mapping)
	return nil
}

func (f *fakeMappingStore) Status(_ context.Context, _ string) (*store.MappingStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeMappingStore) WithTx(_ *sql.Tx) store.MappingStore { return f }

// fakeTaskStore serves tasks by ID and records updates.
type fakeTaskStore struct {
	store.TaskStore

	tasks     map[string]*domain.Task
	getErr    error
	updateErr error

	getCalls int
	updated  []*domain.Task
}

func (f *fakeTaskStore) GetByID(_ context.Context, id string) (*domain.Task, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, task)
	return nil
}

func (f *fakeTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return f }

// fakeEventStore records emitted events and serves scripted query results.
type fakeEventStore struct {
	store.EventStore

	emitted []*events.Event
	emitErr error

	lastReconcile *time.Time
	lastErr       error

	recentFailures int
	countErr       error
	countedTypes   []string
	countedSince   time.Time
}

func (f *fakeEventStore) Emit(_ context.Context, event *events.Event) error {
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *fakeEventStore) LastEventAt(_ context.Context, _ string, _ string) (*time.Time, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	return f.lastReconcile, nil
}

func (f *fakeEventStore) CountEventsSince(_ context.Context, _ string, eventTypes []string, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.countedTypes = eventTypes
	f.countedSince = since
	return f.recentFailures, nil
}

func (f *fakeEventStore) WithTx(_ *sql.Tx) store.EventStore { return f }

// byType returns the recorded events of one type, in emit order.
func (f *fakeEventStore) byType(eventType string) []*events.Event {
	var out []*events.Event
	for _, e := range f.emitted {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func decodePayload(t *testing.T, event *events.Event) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, event.UnmarshalPayload(&payload))
	return payload
}

func localTask(id, title string) *domain.Task {
	return &domain.Task{
		ID:        id,
		UserID:    "usr_1",
		Title:     title,
		TitleNorm: domain.NormalizeTitle(title),
		Status:    domain.TaskStatusOpen,
		CreatedAt: testNow.Add(-48 * time.Hour),
		UpdatedAt: testNow.Add(-24 * time.Hour),
	}
}

func mappedRow(id, taskID, remoteID string) *domain.TrackerMapping {
	return &domain.TrackerMapping{
		ID:          id,
		UserID:      "usr_1",
		LocalTaskID: taskID,
		RemoteID:    remoteID,
		SyncState:   domain.SyncStateSynced,
	}
}

func intPtr(v int) *int { return &v }

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
