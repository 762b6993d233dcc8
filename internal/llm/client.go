// Package llm calls the Anthropic Messages API and returns structured JSON
// objects. Structure is enforced by forcing a single tool call whose input
// schema is the requested object schema.
package llm

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

	"pblboard/api/internal/logger"
)

const (
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 8192
)

var (
	ErrNoOutput      = errors.New("llm: model returned no structured output")
	ErrNotConfigured = errors.New("llm: api key not configured")
)

// ObjectRequest asks for one JSON object matching Schema.
type ObjectRequest struct {
	System     string
	Prompt     string
	SchemaName string
	// Description is shown to the model as the tool description.
	Description string
	Schema      map[string]any
	MaxTokens   int
}

// Generator produces structured objects. *Client implements it; tests use fakes.
type Generator interface {
	GenerateObject(ctx context.Context, req ObjectRequest) (json.RawMessage, error)
	StreamObject(ctx context.Context, req ObjectRequest, onDelta func(partial string)) (json.RawMessage, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxTokens  int
	MaxRetries int
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	maxRetries int
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		maxTokens:  maxTokens,
		maxRetries: max(cfg.MaxRetries, 0),
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(log),
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: http %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: http %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesRequest struct {
	Model      string     `json:"model"`
	MaxTokens  int        `json:"max_tokens"`
	System     string     `json:"system,omitempty"`
	Messages   []message  `json:"messages"`
	Tools      []tool     `json:"tools"`
	ToolChoice toolChoice `json:"tool_choice"`
	Stream     bool       `json:"stream,omitempty"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
	Text  string          `json:"text,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

func (c *Client) buildRequest(req ObjectRequest, stream bool) (messagesRequest, error) {
	if req.Schema == nil {
		return messagesRequest{}, errors.New("llm: schema required")
	}
	name := req.SchemaName
	if name == "" {
		name = "respond"
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	return messagesRequest{
		Model:      c.model,
		MaxTokens:  maxTokens,
		System:     strings.TrimSpace(req.System),
		Messages:   []message{{Role: "user", Content: req.Prompt}},
		Tools:      []tool{{Name: name, Description: req.Description, InputSchema: req.Schema}},
		ToolChoice: toolChoice{Type: "tool", Name: name},
		Stream:     stream,
	}, nil
}

// GenerateObject returns the tool input the model produced for req.
func (c *Client) GenerateObject(ctx context.Context, req ObjectRequest) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	body, err := c.buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	var raw []byte
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var resp *http.Response
		resp, raw, err = c.doOnce(ctx, body)
		if err == nil {
			break
		}
		if attempt >= c.maxRetries || !isRetryable(err) {
			return nil, err
		}
		sleepFor := jitter(retryAfter(resp, backoff, 10*time.Second))
		c.log.Warn("llm request retrying",
			"schema", body.ToolChoice.Name,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	for _, block := range out.Content {
		if block.Type == "tool_use" && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	return nil, ErrNoOutput
}

func (c *Client) newHTTPRequest(ctx context.Context, body messagesRequest) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (c *Client) doOnce(ctx context.Context, body messagesRequest) (*http.Response, []byte, error) {
	req, err := c.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, decodeAPIError(resp.StatusCode, raw)
	}
	return resp, raw, nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// StreamObject is GenerateObject with incremental output. onDelta receives
// the accumulated partial JSON text after every chunk. Streams are never retried.
func (c *Client) StreamObject(ctx context.Context, req ObjectRequest, onDelta func(partial string)) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	body, err := c.buildRequest(req, true)
	if err != nil {
		return nil, err
	}
	httpReq, err := c.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, decodeAPIError(resp.StatusCode, raw)
	}

	var partial strings.Builder
	err = readSSE(resp.Body, func(event, data string) error {
		var evt struct {
			Type  string `json:"type"`
			Delta struct {
				Type        string `json:"type"`
				PartialJSON string `json:"partial_json"`
			} `json:"delta"`
			Error *struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return nil
		}
		if evt.Type == "error" && evt.Error != nil {
			return &APIError{StatusCode: http.StatusBadGateway, Type: evt.Error.Type, Message: evt.Error.Message}
		}
		if evt.Type == "content_block_delta" && evt.Delta.Type == "input_json_delta" && evt.Delta.PartialJSON != "" {
			partial.WriteString(evt.Delta.PartialJSON)
			if onDelta != nil {
				onDelta(partial.String())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(partial.String())
	if text == "" {
		return nil, ErrNoOutput
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("llm: streamed output is not valid JSON: %w", ErrNoOutput)
	}
	return json.RawMessage(text), nil
}
