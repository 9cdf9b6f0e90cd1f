package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Part represents a polymorphic segment of message content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ToolResultPart is a structured reference to a finalized tool invocation
// outcome. Output holds the string-coerced result; Err is set instead when
// the invocation failed.
type ToolResultPart struct {
	Tool   string     // Tool name
	Output string     // String-coerced successful output
	Err    *ErrorInfo // Populated on failure
}

// isPart implements the Part interface for ToolResultPart.
func (ToolResultPart) isPart() {}

// Content holds a role plus ordered parts. It is the inbound message payload
// accepted by the session coordinator.
type Content struct {
	Role  Role   `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Text concatenates all text parts preserving order.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// IsEmpty reports whether the content carries no parts with any substance.
// Whitespace-only text counts as empty.
func (c Content) IsEmpty() bool {
	for _, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			if strings.TrimSpace(v.Text) != "" {
				return false
			}
		case ToolResultPart:
			if v.Tool != "" {
				return false
			}
		}
	}
	return true
}

// partEnvelope is the wire/storage representation of a Part. The closed Part
// set cannot round-trip through encoding/json directly, so parts are tagged
// explicitly.
type partEnvelope struct {
	Type   string     `json:"type"`
	Text   string     `json:"text,omitempty"`
	Tool   string     `json:"tool,omitempty"`
	Output string     `json:"output,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// MarshalParts serializes an ordered part slice into its tagged JSON form.
func MarshalParts(parts []Part) ([]byte, error) {
	envs := make([]partEnvelope, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case TextPart:
			envs = append(envs, partEnvelope{Type: "text", Text: v.Text})
		case ToolResultPart:
			envs = append(envs, partEnvelope{Type: "tool_result", Tool: v.Tool, Output: v.Output, Error: v.Err})
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
	}
	return json.Marshal(envs)
}

// UnmarshalParts restores an ordered part slice from its tagged JSON form.
func UnmarshalParts(data []byte) ([]Part, error) {
	var envs []partEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode parts: %w", err)
	}
	parts := make([]Part, 0, len(envs))
	for _, env := range envs {
		switch env.Type {
		case "text":
			parts = append(parts, TextPart{Text: env.Text})
		case "tool_result":
			parts = append(parts, ToolResultPart{Tool: env.Tool, Output: env.Output, Err: env.Error})
		default:
			return nil, fmt.Errorf("unknown part type %q", env.Type)
		}
	}
	return parts, nil
}
