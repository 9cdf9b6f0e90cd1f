// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema validated arguments, consistent
// error handling and rich metadata for model guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/convoral/convoral/core"
)

// Tool defines a named, schema-validated operation an agent may invoke.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a proper JSON schema for parameters
//   - Be safe for concurrent use
//
// Invocation arguments are validated against the schema by the registry
// before Call runs; validation failures never reach the implementation.
type Tool interface {
	// Name returns the unique identifier for this tool within a registry.
	Name() string

	// Description returns a human-readable description of what this tool
	// does, provided to models to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already-validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Definition is the declarative description of a tool exposed to models and
// introspection callers.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolError represents errors that occur during tool lookup, validation or
// execution. It is the only error shape that crosses the tool boundary;
// implementation-internal error types never leak.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Stable error code
	Details any    `json:"details,omitempty"` // Additional error details
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Info converts the error into its protocol-safe (code, message) pair.
func (e *ToolError) Info() *core.ErrorInfo {
	return core.NewErrorInfo(e.Code, e.Message)
}
