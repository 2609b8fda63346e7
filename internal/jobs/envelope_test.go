package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("parses a full envelope", func(t *testing.T) {
		t.Parallel()

		raw := []byte(`{"job_id":"job-1","topic":"sync.todoist","payload":{"user_id":"usr_1"},"attempt":3}`)

		env, err := Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, "job-1", env.JobID)
		assert.Equal(t, TopicTodoistSync, env.Topic)
		assert.Equal(t, 3, env.Attempt)
		assert.JSONEq(t, `{"user_id":"usr_1"}`, string(env.Payload))
	})

	t.Run("defaults attempt to 1 when omitted", func(t *testing.T) {
		t.Parallel()

		raw := []byte(`{"job_id":"job-2","topic":"plan.refresh","payload":{}}`)

		env, err := Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, 1, env.Attempt)
	})

	t.Run("defaults payload to an empty object when omitted", func(t *testing.T) {
		t.Parallel()

		raw := []byte(`{"job_id":"job-3","topic":"memory.compact"}`)

		env, err := Decode(raw)
		require.NoError(t, err)

		assert.JSONEq(t, `{}`, string(env.Payload))
		assert.Empty(t, env.UserID())
	})

	t.Run("defaults null payload to an empty object", func(t *testing.T) {
		t.Parallel()

		raw := []byte(`{"job_id":"job-4","topic":"memory.compact","payload":null}`)

		env, err := Decode(raw)
		require.NoError(t, err)

		assert.JSONEq(t, `{}`, string(env.Payload))
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte(`{"job_id":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode job envelope")
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	env := Envelope{
		JobID:   "job-7",
		Topic:   TopicTodoistReconcile,
		Payload: json.RawMessage(`{"user_id":"usr_9"}`),
		Attempt: 2,
	}

	raw, err := env.Encode()
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestEnvelopeUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "payload with user_id",
			payload: `{"user_id":"usr_1","chat_id":"chat_9"}`,
			want:    "usr_1",
		},
		{
			name:    "payload without user_id",
			payload: `{"chat_id":"chat_9"}`,
			want:    "",
		},
		{
			name:    "payload that is not an object",
			payload: `["usr_1"]`,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := Envelope{Payload: json.RawMessage(tt.payload)}
			assert.Equal(t, tt.want, env.UserID())
		})
	}
}
