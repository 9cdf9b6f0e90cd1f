package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/model"
	"github.com/convoral/convoral/tool"
)

func collect(t *testing.T, ch <-chan core.ComputationEvent) []core.ComputationEvent {
	t.Helper()
	var events []core.ComputationEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func kinds(events []core.ComputationEvent) []core.ComputationKind {
	out := make([]core.ComputationKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func userHistory(text string) []core.Message {
	return []core.Message{*core.NewMessage("t1", core.RoleUser, core.TextPart{Text: text})}
}

// -------------------- ModelAgent Tests --------------------

func TestModelAgent_StreamsText(t *testing.T) {
	llm := model.NewScriptedModel(model.ScriptStep{
		Deltas: []string{"Hel", "lo"},
		Text:   "Hello",
	})
	a := NewModelAgent("assistant", llm, nil)

	ch, err := a.Run(context.Background(), core.Invocation{ThreadID: "t1", History: userHistory("hi")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []core.ComputationKind{
		core.ComputeTextDelta, core.ComputeTextDelta, core.ComputeDone,
	}, kinds(events))
	assert.Equal(t, "Hel", events[0].Text)
	assert.Equal(t, "lo", events[1].Text)
}

func TestModelAgent_ToolLoop(t *testing.T) {
	registry := tool.NewRegistry().MustRegister(
		tool.NewFunctionTool("get_time", "Current time", nil,
			func(context.Context, map[string]any) (any, error) { return "12:00", nil }),
	)
	llm := model.NewScriptedModel(
		model.ScriptStep{
			ToolCalls: []model.ToolCall{{ID: "c1", Name: "get_time", Arguments: "{}"}},
		},
		model.ScriptStep{
			Deltas: []string{"It is 12:00"},
			Text:   "It is 12:00",
		},
	)
	a := NewModelAgent("assistant", llm, registry)

	ch, err := a.Run(context.Background(), core.Invocation{ThreadID: "t1", History: userHistory("what time is it?")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []core.ComputationKind{
		core.ComputeToolInvocation, core.ComputeToolResult,
		core.ComputeTextDelta, core.ComputeDone,
	}, kinds(events))
	assert.Equal(t, "get_time", events[0].Tool)
	assert.Equal(t, "12:00", events[1].Result)
	assert.Nil(t, events[1].Err)
}

func TestModelAgent_ToolFailureFeedsBack(t *testing.T) {
	registry := tool.NewRegistry().MustRegister(
		tool.NewFunctionTool("flaky", "Always fails", nil,
			func(context.Context, map[string]any) (any, error) { return nil, errors.New("backend down") }),
	)
	llm := model.NewScriptedModel(
		model.ScriptStep{
			ToolCalls: []model.ToolCall{{ID: "c1", Name: "flaky", Arguments: "{}"}},
		},
		model.ScriptStep{
			Deltas: []string{"Sorry, that did not work."},
			Text:   "Sorry, that did not work.",
		},
	)
	a := NewModelAgent("assistant", llm, registry)

	ch, err := a.Run(context.Background(), core.Invocation{ThreadID: "t1", History: userHistory("try it")})
	require.NoError(t, err)
	events := collect(t, ch)

	// The failed call is scoped to the call: the turn still completes.
	require.Equal(t, []core.ComputationKind{
		core.ComputeToolInvocation, core.ComputeToolResult,
		core.ComputeTextDelta, core.ComputeDone,
	}, kinds(events))
	require.NotNil(t, events[1].Err)
	assert.Equal(t, core.CodeToolExecution, events[1].Err.Code)
}

func TestModelAgent_MalformedArguments(t *testing.T) {
	registry := tool.NewRegistry().MustRegister(
		tool.NewFunctionTool("get_time", "Current time", nil,
			func(context.Context, map[string]any) (any, error) { return "12:00", nil }),
	)
	llm := model.NewScriptedModel(
		model.ScriptStep{
			ToolCalls: []model.ToolCall{{ID: "c1", Name: "get_time", Arguments: "{not json"}},
		},
		model.ScriptStep{Deltas: []string{"ok"}, Text: "ok"},
	)
	a := NewModelAgent("assistant", llm, registry)

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("go")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.NotNil(t, events[1].Err)
	assert.Equal(t, core.CodeValidation, events[1].Err.Code)
}

func TestModelAgent_ModelErrorEndsTurn(t *testing.T) {
	llm := model.NewScriptedModel(model.ScriptStep{Err: errors.New("provider unavailable")})
	a := NewModelAgent("assistant", llm, nil)

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("hi")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []core.ComputationKind{core.ComputeError}, kinds(events))
	assert.Equal(t, core.CodeAgentError, events[0].Err.Code)
}

func TestModelAgent_RoundLimit(t *testing.T) {
	registry := tool.NewRegistry().MustRegister(
		tool.NewFunctionTool("loop", "Loops forever", nil,
			func(context.Context, map[string]any) (any, error) { return "again", nil }),
	)
	// Every round requests another tool call; the loop must be cut off.
	steps := make([]model.ScriptStep, 5)
	for i := range steps {
		steps[i] = model.ScriptStep{
			ToolCalls: []model.ToolCall{{ID: "c", Name: "loop", Arguments: "{}"}},
		}
	}
	llm := model.NewScriptedModel(steps...)
	a := NewModelAgent("assistant", llm, registry, func(o *ModelAgentOptions) {
		o.MaxModelCalls = 2
	})

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("go")})
	require.NoError(t, err)
	events := collect(t, ch)

	last := events[len(events)-1]
	require.Equal(t, core.ComputeError, last.Kind)
	assert.Equal(t, core.CodeAgentError, last.Err.Code)
}

func TestModelAgent_NonStreamingFinalTextBecomesDelta(t *testing.T) {
	llm := model.NewScriptedModel(model.ScriptStep{Text: "complete answer"})
	a := NewModelAgent("assistant", llm, nil)

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("hi")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []core.ComputationKind{core.ComputeTextDelta, core.ComputeDone}, kinds(events))
	assert.Equal(t, "complete answer", events[0].Text)
}

// -------------------- TriageAgent Tests --------------------

func triageTargets() []TriageTarget {
	return []TriageTarget{
		{Name: "billing", Description: "Invoices and refunds", Keywords: []string{"refund", "invoice"}},
		{Name: "support", Description: "Bugs and crashes", Keywords: []string{"crash"}},
	}
}

func TestTriageAgent_DelegatesOnKeyword(t *testing.T) {
	a := NewTriageAgent("triage", triageTargets())

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("I want a refund")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []core.ComputationKind{core.ComputeDelegate}, kinds(events))
	assert.Equal(t, "billing", events[0].Target)
}

func TestTriageAgent_DescribesCapabilitiesWhenUnmatched(t *testing.T) {
	a := NewTriageAgent("triage", triageTargets())

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("hello")})
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []core.ComputationKind{
		core.ComputeToolInvocation, core.ComputeToolResult,
		core.ComputeTextDelta, core.ComputeDone,
	}, kinds(events))
	assert.Equal(t, "describe_capabilities", events[0].Tool)
	assert.Contains(t, events[2].Text, "billing")
	assert.Contains(t, events[2].Text, "support")
}

func TestTriageAgent_NoTargets(t *testing.T) {
	a := NewTriageAgent("triage", nil)

	ch, err := a.Run(context.Background(), core.Invocation{History: userHistory("hello")})
	require.NoError(t, err)
	events := collect(t, ch)

	last := events[len(events)-1]
	assert.Equal(t, core.ComputeDone, last.Kind)
	assert.Contains(t, events[2].Text, "No specialized agents")
}

// -------------------- BaseAgent Tests --------------------

func TestBaseAgent_Identity(t *testing.T) {
	b := NewBaseAgent("worker")
	assert.Equal(t, "worker", b.Name())
	assert.NotEmpty(t, b.Description())

	b.SetDescription("does work")
	assert.Equal(t, "does work", b.Description())
}
