package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"title": map[string]any{"type": "string"}},
	"required":   []string{"title"},
}

func TestGenerateObjectForcesToolUse(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"},{"type":"tool_use","name":"title","input":{"title":"River Keepers"}}],"stop_reason":"tool_use"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"}, nil)
	out, err := client.GenerateObject(context.Background(), ObjectRequest{
		System: "sys", Prompt: "make a title", SchemaName: "title", Schema: testSchema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"River Keepers"}`, string(out))

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, toolChoice{Type: "tool", Name: "title"}, got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "title", got.Tools[0].Name)
	assert.Equal(t, []message{{Role: "user", Content: "make a title"}}, got.Messages)
}

func TestGenerateObjectNoToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"I cannot"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil)
	_, err := client.GenerateObject(context.Background(), ObjectRequest{Schema: testSchema})
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestGenerateObjectDoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil)
	_, err := client.GenerateObject(context.Background(), ObjectRequest{Schema: testSchema})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Overloaded", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateObjectRetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use","name":"respond","input":{"title":"x"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 1}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := client.GenerateObject(ctx, ObjectRequest{Schema: testSchema})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x"}`, string(out))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateObjectRequiresKey(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.GenerateObject(context.Background(), ObjectRequest{Schema: testSchema})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStreamObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{`{"title"`, `: "Riv`, `er"}`}
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		for _, chunk := range chunks {
			delta, _ := json.Marshal(map[string]any{
				"type":  "content_block_delta",
				"index": 0,
				"delta": map[string]any{"type": "input_json_delta", "partial_json": chunk},
			})
			fmt.Fprintf(w, "event: content_block_delta\ndata: %s\n\n", delta)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil)
	var partials []string
	out, err := client.StreamObject(context.Background(), ObjectRequest{Schema: testSchema}, func(p string) {
		partials = append(partials, p)
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"River"}`, string(out))
	assert.Equal(t, []string{`{"title"`, `{"title": "Riv`, `{"title": "River"}`}, partials)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&APIError{StatusCode: 529}))
	assert.True(t, isRetryable(&APIError{StatusCode: 500}))
	assert.False(t, isRetryable(&APIError{StatusCode: 400}))
	assert.False(t, isRetryable(context.Canceled))
	assert.True(t, isRetryable(context.DeadlineExceeded))
}
