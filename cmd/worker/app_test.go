package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/augur/internal/jobs"
)

// fakePlanService records Refresh calls.
type fakePlanService struct {
	calls  int
	userID string
	chatID string
	err    error
}

func (f *fakePlanService) Refresh(ctx context.Context, userID, chatID string) error {
	f.calls++
	f.userID = userID
	f.chatID = chatID
	return f.err
}

// fakeSyncRunner records Run calls for either sync engine.
type fakeSyncRunner struct {
	calls   int
	userID  string
	attempt int
	err     error
}

func (f *fakeSyncRunner) Run(ctx context.Context, userID string, attempt int) error {
	f.calls++
	f.userID = userID
	f.attempt = attempt
	return f.err
}

// fakeCompactor records compaction runs.
type fakeCompactor struct {
	calls  int
	userID string
	err    error
}

func (f *fakeCompactor) Run(ctx context.Context, userID string) error {
	f.calls++
	f.userID = userID
	return f.err
}

func envelope(topic string, payload string, attempt int) jobs.Envelope {
	return jobs.Envelope{
		JobID:   "job-1",
		Topic:   topic,
		Payload: json.RawMessage(payload),
		Attempt: attempt,
	}
}

func TestHandlePlanRefresh(t *testing.T) {
	t.Run("routes payload to the plan service", func(t *testing.T) {
		plans := &fakePlanService{}
		app := &application{planService: plans}

		err := app.handlePlanRefresh(context.Background(),
			envelope(jobs.TopicPlanRefresh, `{"user_id":"u1","chat_id":"c9"}`, 1))

		require.NoError(t, err)
		assert.Equal(t, 1, plans.calls)
		assert.Equal(t, "u1", plans.userID)
		assert.Equal(t, "c9", plans.chatID)
	})

	t.Run("missing user_id fails without touching the service", func(t *testing.T) {
		plans := &fakePlanService{}
		app := &application{planService: plans}

		err := app.handlePlanRefresh(context.Background(),
			envelope(jobs.TopicPlanRefresh, `{"chat_id":"c9"}`, 1))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing user_id")
		assert.Zero(t, plans.calls)
	})

	t.Run("malformed payload fails", func(t *testing.T) {
		plans := &fakePlanService{}
		app := &application{planService: plans}

		err := app.handlePlanRefresh(context.Background(),
			envelope(jobs.TopicPlanRefresh, `{"user_id":`, 1))

		require.Error(t, err)
		assert.Zero(t, plans.calls)
	})

	t.Run("service error propagates to the dispatcher", func(t *testing.T) {
		cause := errors.New("cache unavailable")
		app := &application{planService: &fakePlanService{err: cause}}

		err := app.handlePlanRefresh(context.Background(),
			envelope(jobs.TopicPlanRefresh, `{"user_id":"u1"}`, 1))

		assert.ErrorIs(t, err, cause)
	})
}

func TestHandleTodoistSync(t *testing.T) {
	t.Run("passes user and attempt to the push engine", func(t *testing.T) {
		push := &fakeSyncRunner{}
		app := &application{pushEngine: push}

		err := app.handleTodoistSync(context.Background(),
			envelope(jobs.TopicTodoistSync, `{"user_id":"u1"}`, 3))

		require.NoError(t, err)
		assert.Equal(t, 1, push.calls)
		assert.Equal(t, "u1", push.userID)
		assert.Equal(t, 3, push.attempt)
	})

	t.Run("missing user_id fails", func(t *testing.T) {
		push := &fakeSyncRunner{}
		app := &application{pushEngine: push}

		err := app.handleTodoistSync(context.Background(),
			envelope(jobs.TopicTodoistSync, `{}`, 1))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing user_id")
		assert.Zero(t, push.calls)
	})
}

func TestHandleTodoistReconcile(t *testing.T) {
	reconcile := &fakeSyncRunner{}
	app := &application{reconcileEngine: reconcile}

	err := app.handleTodoistReconcile(context.Background(),
		envelope(jobs.TopicTodoistReconcile, `{"user_id":"u2"}`, 2))

	require.NoError(t, err)
	assert.Equal(t, "u2", reconcile.userID)
	assert.Equal(t, 2, reconcile.attempt)
}

func TestHandleMemoryCompact(t *testing.T) {
	t.Run("user scope passes through", func(t *testing.T) {
		compactor := &fakeCompactor{}
		app := &application{compactor: compactor}

		err := app.handleMemoryCompact(context.Background(),
			envelope(jobs.TopicMemoryCompact, `{"user_id":"u3"}`, 1))

		require.NoError(t, err)
		assert.Equal(t, 1, compactor.calls)
		assert.Equal(t, "u3", compactor.userID)
	})

	t.Run("empty payload compacts all users", func(t *testing.T) {
		compactor := &fakeCompactor{}
		app := &application{compactor: compactor}

		err := app.handleMemoryCompact(context.Background(),
			envelope(jobs.TopicMemoryCompact, `{}`, 1))

		require.NoError(t, err)
		assert.Equal(t, 1, compactor.calls)
		assert.Empty(t, compactor.userID)
	})

	t.Run("malformed payload fails", func(t *testing.T) {
		compactor := &fakeCompactor{}
		app := &application{compactor: compactor}

		err := app.handleMemoryCompact(context.Background(),
			envelope(jobs.TopicMemoryCompact, `[`, 1))

		require.Error(t, err)
		assert.Zero(t, compactor.calls)
	})
}

func TestRequireUserID(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    string
		wantErr string
	}{
		{
			name:    "valid payload",
			payload: `{"user_id":"u1"}`,
			want:    "u1",
		},
		{
			name:    "missing user_id",
			payload: `{"other":"field"}`,
			wantErr: "missing user_id",
		},
		{
			name:    "empty user_id",
			payload: `{"user_id":""}`,
			wantErr: "missing user_id",
		},
		{
			name:    "malformed payload",
			payload: `not json`,
			wantErr: "failed to decode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := requireUserID(envelope(jobs.TopicTodoistSync, tc.payload, 1))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestRunFailsWithoutDatabaseURL exercises the startup path far enough to
// prove configuration failures surface as errors instead of a half-started
// worker.
func TestRunFailsWithoutDatabaseURL(t *testing.T) {
	t.Setenv("AUGUR_DATABASE_URL", "")

	err := run("", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
