package httprequest_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ryxhub/flowengine/pkg/actions/httprequest"
	"github.com/ryxhub/flowengine/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   map[string]any
		expected *httprequest.Action
		wantErr  error
	}{
		{
			name:   "basic GET request",
			config: map[string]any{"url": "https://api.example.com/data"},
			expected: &httprequest.Action{
				URL:     "https://api.example.com/data",
				Method:  "GET",
				Headers: map[string]string{},
				Timeout: 30 * time.Second,
			},
		},
		{
			name: "POST request with headers and body",
			config: map[string]any{
				"url":    "https://api.example.com/create",
				"method": "post",
				"body":   `{"key": "value"}`,
				"headers": map[string]any{
					"Authorization": "Bearer token123",
					"X-Ignored":     42,
				},
				"timeout": 2.5,
			},
			expected: &httprequest.Action{
				URL:     "https://api.example.com/create",
				Method:  "POST",
				Body:    `{"key": "value"}`,
				Headers: map[string]string{"Authorization": "Bearer token123"},
				Timeout: 2500 * time.Millisecond,
			},
		},
		{
			name:    "missing url",
			config:  map[string]any{"method": "GET"},
			wantErr: httprequest.ErrHTTPRequestURLInvalid,
		},
		{
			name:    "unsupported method",
			config:  map[string]any{"url": "http://x", "method": "BREW"},
			wantErr: httprequest.ErrHTTPMethodInvalid,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			action, err := httprequest.NewAction(testCase.config)
			if testCase.wantErr != nil {
				require.ErrorIs(t, err, testCase.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.expected, action)
		})
	}
}

func TestAction_Execute_RendersUpstreamOutputs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/users/42", request.URL.Path)
		assert.Equal(t, "Bearer s3cret", request.Header.Get("Authorization"))
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

		var body map[string]any

		assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		assert.Equal(t, "summarize", body["task"])

		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]any{"created": true, "id": 123})
	}))
	defer server.Close()

	action, err := httprequest.NewAction(map[string]any{
		"url":     server.URL + "/users/{{ .inputs.T1.user_id }}",
		"method":  "POST",
		"body":    `{"task": "{{ .vars.task }}"}`,
		"headers": map[string]any{"Authorization": "Bearer {{ .vars.token }}"},
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), protocol.ActionInput{
		Inputs:    map[string]map[string]any{"T1": {"user_id": 42}},
		Variables: map[string]any{"task": "summarize", "token": "s3cret"},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.Output["status_code"])

	body, ok := result.Output["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, body["created"])
	assert.InEpsilon(t, 123, body["id"], 0.01)
	require.Len(t, result.Logs, 1)
	assert.Contains(t, result.Logs[0], "-> 200")
}

func TestAction_Execute_NonSuccessStatusFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		_, _ = writer.Write([]byte("upstream down"))
	}))
	defer server.Close()

	action, err := httprequest.NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), protocol.ActionInput{}, slog.Default())
	require.ErrorIs(t, err, httprequest.ErrHTTPStatus)
	assert.Contains(t, err.Error(), "502")
	assert.Nil(t, result.Output)
	assert.NotEmpty(t, result.Logs)
}

func TestAction_Execute_PlainTextBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte("pong"))
	}))
	defer server.Close()

	action, err := httprequest.NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), protocol.ActionInput{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "pong", result.Output["body"])
}

func TestAction_Execute_HonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		select {
		case <-release:
		case <-request.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	action, err := httprequest.NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = action.Execute(ctx, protocol.ActionInput{}, slog.Default())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
