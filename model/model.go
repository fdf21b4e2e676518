package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Conversation roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by runners.
type Request struct {
	Instructions string    `json:"instructions"` // System prompt, may be empty
	Messages     []Message `json:"messages"`
	// Optional generation overrides; nil keeps the adapter default.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int64   `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion returned by a model.
type Response struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", ...
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface required by runners to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// APIError is returned by adapters when the remote service rejected or
// failed a request. StatusCode is zero when no HTTP response was received.
type APIError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements error.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
}

// Unwrap returns the vendor error.
func (e *APIError) Unwrap() error { return e.Err }

// WrapAPIError converts a vendor error into *APIError. Context errors pass
// through untouched so callers can still detect deadlines and cancellation.
func WrapAPIError(provider string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return &APIError{Provider: provider, StatusCode: statusCode, Err: err}
}

// LastUserText returns the content of the last user message, or "".
func (r Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Unknown prompts are echoed back as "Mock response to: <prompt>".
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	err       error
	requests  []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetError makes every subsequent Generate call fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.err
	canned, ok := m.responses[req.LastUserText()]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	prompt := req.LastUserText()
	if !ok {
		canned = fmt.Sprintf("Mock response to: %s", prompt)
	}
	return &Response{
		ID:           fmt.Sprintf("mock-%d", len(m.Requests())),
		Content:      canned,
		FinishReason: "stop",
		Usage: &TokenUsage{
			PromptTokens:     len(prompt),
			CompletionTokens: len(canned),
			TotalTokens:      len(prompt) + len(canned),
		},
	}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
