package convoral_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoral/convoral"
	"github.com/convoral/convoral/agent"
	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/model"
	"github.com/convoral/convoral/router"
	"github.com/convoral/convoral/tool"
)

func collect(ch <-chan core.ProtocolEvent) []core.ProtocolEvent {
	var events []core.ProtocolEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// End to end: triage hands off to a specialist that runs a tool and answers.
func TestConvoral_TriageToSpecialistTurn(t *testing.T) {
	registry := tool.NewRegistry().MustRegister(
		tool.NewFunctionTool("refund_status", "Look up refund state",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order": map[string]any{"type": "string"},
				},
				"required": []string{"order"},
			},
			func(_ context.Context, args map[string]any) (any, error) {
				return "refund for " + args["order"].(string) + " is processing", nil
			}),
	)
	llm := model.NewScriptedModel(
		model.ScriptStep{
			ToolCalls: []model.ToolCall{{ID: "c1", Name: "refund_status", Arguments: `{"order":"A-1"}`}},
		},
		model.ScriptStep{
			Deltas: []string{"Your refund ", "is processing."},
			Text:   "Your refund is processing.",
		},
	)
	billing := agent.NewModelAgent("billing", llm, registry)
	triage := agent.NewTriageAgent("triage", []agent.TriageTarget{
		{Name: "billing", Description: "Invoices and refunds", Keywords: []string{"refund"}},
	})

	c := convoral.New([]core.Agent{triage, billing}, func(o *convoral.Options) {
		o.Fallback = "triage"
	})

	ch, err := c.RespondText(context.Background(), "t1", "where is my refund?")
	require.NoError(t, err)
	events := collect(ch)

	types := make([]core.ProtocolType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []core.ProtocolType{
		core.EventDelegationStarted,
		core.EventToolStarted, core.EventToolCompleted,
		core.EventItemCreated, core.EventItemUpdated, core.EventItemUpdated, core.EventItemCompleted,
	}, types)
	assert.Equal(t, "Your refund is processing.", events[len(events)-1].Text)

	// The turn was persisted and a follow-up sees the history.
	msgs, err := c.Runner().GetMessages(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
}

func TestConvoral_RouterBypassesTriage(t *testing.T) {
	llm := model.NewScriptedModel(model.ScriptStep{Deltas: []string{"issued"}, Text: "issued"})
	billing := agent.NewModelAgent("billing", llm, nil)
	triage := agent.NewTriageAgent("triage", nil)

	c := convoral.New([]core.Agent{triage, billing}, func(o *convoral.Options) {
		o.Router = router.New("triage", router.Rule{Agent: "billing", Keywords: []string{"refund"}})
	})

	ch, err := c.RespondText(context.Background(), "t1", "refund please")
	require.NoError(t, err)
	events := collect(ch)

	for _, ev := range events {
		assert.NotEqual(t, core.EventDelegationStarted, ev.Type)
	}
	assert.Equal(t, core.EventItemCompleted, events[len(events)-1].Type)
}

func TestConvoral_MultiTurnThread(t *testing.T) {
	llm := model.NewScriptedModel(
		model.ScriptStep{Deltas: []string{"first"}, Text: "first"},
		model.ScriptStep{Deltas: []string{"second"}, Text: "second"},
	)
	assistant := agent.NewModelAgent("assistant", llm, nil)
	c := convoral.New([]core.Agent{assistant}, func(o *convoral.Options) {
		o.Fallback = "assistant"
	})

	for _, text := range []string{"one", "two"} {
		ch, err := c.RespondText(context.Background(), "t1", text)
		require.NoError(t, err)
		collect(ch)
	}

	msgs, err := c.Runner().GetMessages(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "second", msgs[3].Text())
}
