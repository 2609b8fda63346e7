package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/augur/internal/config"
	"github.com/phrazzld/augur/internal/remote"
)

// newTestClient points a client with a known token at the given handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.TodoistConfig{
		Token:          "test-token",
		APIBase:        srv.URL,
		TimeoutSeconds: 5,
	})
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	client := NewClient(config.TodoistConfig{
		Token:          "test-token",
		APIBase:        "https://api.todoist.com/rest/v2/",
		TimeoutSeconds: 15,
	})

	assert.Equal(t, "https://api.todoist.com/rest/v2", client.apiBase)
}

func TestClient_CreateTask(t *testing.T) {
	t.Parallel()

	var gotPayload remote.TaskPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "7001",
			"content":      "Write launch notes",
			"description":  "Keep it short",
			"priority":     3,
			"is_completed": false,
			"due":          map[string]any{"date": "2026-04-01"},
		})
	})

	task, err := client.CreateTask(context.Background(), remote.TaskPayload{
		Content:     "Write launch notes",
		Description: "Keep it short",
		Priority:    3,
		DueDate:     "2026-04-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "Write launch notes", gotPayload.Content)
	assert.Equal(t, 3, gotPayload.Priority)
	assert.Equal(t, "2026-04-01", gotPayload.DueDate)

	assert.Equal(t, "7001", task.ID)
	assert.Equal(t, "Write launch notes", task.Content)
	assert.Equal(t, 3, task.Priority)
	assert.False(t, task.IsCompleted)
	require.NotNil(t, task.Due)
	assert.Equal(t, "2026-04-01", task.Due.Date)
}

func TestClient_CreateTask_RequestRejected(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("content must not be empty"))
	})

	_, err := client.CreateTask(context.Background(), remote.TaskPayload{})
	require.Error(t, err)

	var transientErr *remote.TransientError
	require.ErrorAs(t, err, &transientErr)
	assert.Equal(t, http.StatusBadRequest, transientErr.StatusCode)
	assert.Equal(t, "content must not be empty", transientErr.Excerpt)
	assert.ErrorIs(t, err, remote.ErrRequestRejected)
	assert.NotErrorIs(t, err, remote.ErrTrackerUnavailable)
}

func TestClient_CreateTask_TrackerUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.CreateTask(context.Background(), remote.TaskPayload{Content: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrTrackerUnavailable)
}

func TestClient_ErrorExcerptIsBounded(t *testing.T) {
	t.Parallel()

	longBody := strings.Repeat("e", 4096)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(longBody))
	})

	_, err := client.CreateTask(context.Background(), remote.TaskPayload{Content: "x"})
	require.Error(t, err)

	var transientErr *remote.TransientError
	require.ErrorAs(t, err, &transientErr)
	assert.Len(t, transientErr.Excerpt, maxErrorExcerpt)
}

func TestClient_UpdateTask_Tolerates204(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks/7001", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateTask(context.Background(), "7001", remote.TaskPayload{Content: "Renamed"})
	require.NoError(t, err)
}

func TestClient_CloseTask(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks/7001/close", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		// No body on close, so no Content-Type either.
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CloseTask(context.Background(), "7001"))
}

func TestClient_GetTask(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/tasks/7001", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":           "7001",
				"content":      "Write launch notes",
				"priority":     4,
				"is_completed": true,
			})
		})

		task, found, err := client.GetTask(context.Background(), "7001")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "7001", task.ID)
		assert.True(t, task.IsCompleted)
		assert.Nil(t, task.Due)
	})

	t.Run("missing task reports found=false without error", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "task not found", http.StatusNotFound)
		})

		task, found, err := client.GetTask(context.Background(), "gone")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, remote.RemoteTask{}, task)
	})

	t.Run("server error is surfaced", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, found, err := client.GetTask(context.Background(), "7001")
		require.Error(t, err)
		assert.False(t, found)
		assert.ErrorIs(t, err, remote.ErrTrackerUnavailable)
	})
}

func TestClient_MissingToken(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.TodoistConfig{
		Token:          "",
		APIBase:        srv.URL,
		TimeoutSeconds: 5,
	})
	ctx := context.Background()

	_, err := client.CreateTask(ctx, remote.TaskPayload{Content: "x"})
	assert.ErrorIs(t, err, remote.ErrMissingToken)

	err = client.UpdateTask(ctx, "1", remote.TaskPayload{Content: "x"})
	assert.ErrorIs(t, err, remote.ErrMissingToken)

	err = client.CloseTask(ctx, "1")
	assert.ErrorIs(t, err, remote.ErrMissingToken)

	_, _, err = client.GetTask(ctx, "1")
	assert.ErrorIs(t, err, remote.ErrMissingToken)

	assert.Zero(t, calls, "no request should reach the API without a token")
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	// Port 1 is never listening; the dial fails immediately.
	client := NewClient(config.TodoistConfig{
		Token:          "test-token",
		APIBase:        "http://127.0.0.1:1",
		TimeoutSeconds: 1,
	})

	_, err := client.CreateTask(context.Background(), remote.TaskPayload{Content: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrTrackerUnavailable)

	var transientErr *remote.TransientError
	assert.False(t, errors.As(err, &transientErr), "transport failures carry no HTTP status")
}
