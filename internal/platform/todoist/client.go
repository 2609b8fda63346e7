package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/augur/internal/config"
	"github.com/phrazzld/augur/internal/remote"
)

// maxErrorExcerpt bounds how much of an error response body is kept for
// diagnostics. Todoist error bodies are short; anything longer is noise.
const maxErrorExcerpt = 1024

// maxResponseBody bounds how much of a success response body is read.
const maxResponseBody = 1 << 20

// Client is a Todoist REST v2 client implementing remote.Tracker.
//
// Construction never fails: a missing token is a valid configured state, and
// every call made in that state returns remote.ErrMissingToken so the failure
// surfaces at the first sync attempt instead of at process startup.
type Client struct {
	apiBase string
	token   string
	http    *http.Client
}

// Compile-time check that Client satisfies the tracker boundary.
var _ remote.Tracker = (*Client)(nil)

// NewClient builds a Todoist client from configuration.
func NewClient(cfg config.TodoistConfig) *Client {
	return &Client{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// CreateTask creates a task remotely and returns Todoist's representation of
// it, including the remote ID that keys all later calls.
func (c *Client) CreateTask(ctx context.Context, payload remote.TaskPayload) (remote.RemoteTask, error) {
	body, err := c.do(ctx, http.MethodPost, "/tasks", payload)
	if err != nil {
		return remote.RemoteTask{}, err
	}

	var task remote.RemoteTask
	if err := json.Unmarshal(body, &task); err != nil {
		return remote.RemoteTask{}, fmt.Errorf("decode create task response: %w", err)
	}
	return task, nil
}

// UpdateTask overwrites the mutable fields of an existing remote task.
// Todoist answers updates with 204 and an empty body, so the response is
// discarded.
func (c *Client) UpdateTask(ctx context.Context, remoteID string, payload remote.TaskPayload) error {
	_, err := c.do(ctx, http.MethodPost, "/tasks/"+remoteID, payload)
	return err
}

// CloseTask marks the remote task complete.
func (c *Client) CloseTask(ctx context.Context, remoteID string) error {
	_, err := c.do(ctx, http.MethodPost, "/tasks/"+remoteID+"/close", nil)
	return err
}

// GetTask fetches one remote task. A 404 means the task was deleted on the
// remote side and reports found=false with a nil error; the reconcile engine
// treats that as terminal drift, not a failure.
func (c *Client) GetTask(ctx context.Context, remoteID string) (remote.RemoteTask, bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/tasks/"+remoteID, nil)
	if err != nil {
		var transientErr *remote.TransientError
		if errors.As(err, &transientErr) && transientErr.StatusCode == http.StatusNotFound {
			return remote.RemoteTask{}, false, nil
		}
		return remote.RemoteTask{}, false, err
	}

	var task remote.RemoteTask
	if err := json.Unmarshal(body, &task); err != nil {
		return remote.RemoteTask{}, false, fmt.Errorf("decode get task response: %w", err)
	}
	return task, true, nil
}

// do sends one API call and returns the response body. Transport failures
// wrap remote.ErrTrackerUnavailable; non-2xx responses become a
// *remote.TransientError carrying the status and a bounded body excerpt.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.token == "" {
		return nil, remote.ErrMissingToken
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrTrackerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorExcerpt))
		return nil, &remote.TransientError{
			StatusCode: resp.StatusCode,
			Excerpt:    strings.TrimSpace(string(excerpt)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
