// Package model defines the inference collaborator contract: a streaming
// interface over which the actual language-model call (or any other opaque
// computation) plugs into agents. Provider adapters live in subpackages.
package model

import (
	"context"
	"fmt"

	"github.com/convoral/convoral/tool"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResult feeds the outcome of an executed call back to the model on the
// next round.
type ToolResult struct {
	ID      string `json:"id"`   // Matches originating ToolCall ID
	Name    string `json:"name"` // Tool name
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// Message is the provider-neutral conversation unit accepted in requests.
// Exactly one of the payload groups is populated: plain text, assistant tool
// calls, or tool results.
type Message struct {
	Role        string       `json:"role"` // user, assistant, system, tool
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string            `json:"instructions"`
	Messages     []Message         `json:"messages"`
	Tools        []tool.Definition `json:"tools,omitempty"`
	Stream       bool              `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a streaming model. A
// partial chunk carries an incremental text delta; the final chunk carries
// the full accumulated text plus any tool calls.
type Response struct {
	Partial      bool       `json:"partial"`
	Text         string     `json:"text,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", ...
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation. The
// response channel is closed on completion; the error channel carries at most
// one terminal error. Both channels must be drained to avoid goroutine leaks
// unless the context is cancelled.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// It echoes canned responses keyed by the last message text.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model; emits optional streaming rune chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		input := req.Messages[len(req.Messages)-1].Text
		full := m.responses[input]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", input)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Partial: false, Text: full, FinishReason: "stop"}:
		}
	}()
	return respCh, errCh
}

// Info implements the Model interface.
func (m *MockModel) Info() Info { return m.info }
