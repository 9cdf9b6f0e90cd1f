package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoral/convoral/core"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateArguments_CollectsEveryViolation(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "integer"},
			"b": map[string]any{"type": "string"},
			"c": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	violations, err := ValidateArguments(map[string]any{"c": "not-a-number"}, schema)
	require.NoError(t, err)
	// Two missing required fields plus one type mismatch, reported together.
	assert.Len(t, violations, 3)

	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, fields)
}

func TestValidateArguments_Valid(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"x"},
	}
	violations, err := ValidateArguments(map[string]any{"x": 5}, schema)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateArguments_EmptySchemaAcceptsAnything(t *testing.T) {
	violations, err := ValidateArguments(map[string]any{"anything": true}, nil)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

// -------------------- Registry Tests --------------------

func echoTool() *FunctionTool {
	return NewFunctionTool("echo", "Echo the input back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	err := r.Register(echoTool())
	require.Error(t, err)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeDuplicateTool, toolErr.Code)
}

func TestRegistry_DefinitionsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry().MustRegister(
		echoTool(),
		NewFunctionTool("first", "d", nil, func(context.Context, map[string]any) (any, error) { return nil, nil }),
	)
	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "first", defs[1].Name)
}

func TestRegistry_Subset(t *testing.T) {
	r := NewRegistry().MustRegister(echoTool())

	sub, err := r.Subset("echo")
	require.NoError(t, err)
	assert.Equal(t, []string{"echo"}, sub.Names())

	_, err = r.Subset("echo", "missing")
	require.Error(t, err)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeNotFound, toolErr.Code)
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	r := NewRegistry().MustRegister(echoTool())
	out, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hi"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "ghost", nil, 0)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeNotFound, toolErr.Code)
}

func TestRegistry_InvokeValidationFailure(t *testing.T) {
	r := NewRegistry().MustRegister(echoTool())
	_, err := r.Invoke(context.Background(), "echo", map[string]any{"text": 42}, 0)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeValidation, toolErr.Code)

	details, ok := toolErr.Details.(ValidationErrors)
	require.True(t, ok)
	assert.NotEmpty(t, details)
}

func TestRegistry_InvokeTimeout(t *testing.T) {
	slow := NewFunctionTool("slow", "Sleeps past the deadline", nil,
		func(ctx context.Context, _ map[string]any) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		})
	r := NewRegistry().MustRegister(slow)

	_, err := r.Invoke(context.Background(), "slow", nil, 20*time.Millisecond)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeToolTimeout, toolErr.Code)
}

func TestRegistry_InvokeRecoversPanic(t *testing.T) {
	boom := NewFunctionTool("boom", "Panics", nil,
		func(context.Context, map[string]any) (any, error) { panic("kaboom") })
	r := NewRegistry().MustRegister(boom)

	_, err := r.Invoke(context.Background(), "boom", nil, 0)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeToolExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "kaboom")
}

func TestRegistry_InvokePreservesCustomCode(t *testing.T) {
	custom := NewFunctionTool("custom", "Returns a coded failure", nil,
		func(context.Context, map[string]any) (any, error) {
			return nil, NewToolError("custom", "quota exhausted", "QUOTA_EXCEEDED")
		})
	r := NewRegistry().MustRegister(custom)

	_, err := r.Invoke(context.Background(), "custom", nil, 0)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "QUOTA_EXCEEDED", toolErr.Code)
}

func TestRegistry_InvokeWrapsPlainErrors(t *testing.T) {
	failing := NewFunctionTool("failing", "Returns a plain error", nil,
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("disk on fire")
		})
	r := NewRegistry().MustRegister(failing)

	_, err := r.Invoke(context.Background(), "failing", nil, 0)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, core.CodeToolExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "disk on fire")
}

// -------------------- Describe Capabilities Tests --------------------

func TestDescribeCapabilitiesTool(t *testing.T) {
	dt := NewDescribeCapabilitiesTool(func() []Capability {
		return []Capability{
			{Agent: "zeta", Description: "Z things"},
			{Agent: "alpha", Description: "A things"},
		}
	})
	assert.Equal(t, "describe_capabilities", dt.Name())

	out, err := dt.Call(context.Background(), nil)
	require.NoError(t, err)
	caps, ok := out.([]Capability)
	require.True(t, ok)
	require.Len(t, caps, 2)
	assert.Equal(t, "alpha", caps[0].Agent)
	assert.Equal(t, "zeta", caps[1].Agent)
}
