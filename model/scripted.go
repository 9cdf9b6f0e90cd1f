package model

import "context"

// ScriptStep is one scripted model round: streamed text deltas followed by a
// final chunk with optional tool calls, or a terminal error.
type ScriptStep struct {
	Deltas    []string
	Text      string // accumulated final text for the round
	ToolCalls []ToolCall
	Err       error
}

// ScriptedModel replays a fixed sequence of rounds, one per Generate call.
// Deterministic by construction, it exists to exercise the agent tool loop in
// tests without a provider.
type ScriptedModel struct {
	info  Info
	steps []ScriptStep
	next  int
}

// NewScriptedModel constructs a model that plays the given steps in order.
// Calls beyond the script return an empty final chunk.
func NewScriptedModel(steps ...ScriptStep) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: "scripted", Provider: "mock", SupportsTools: true},
		steps: steps,
	}
}

// Generate implements Model by replaying the next scripted step.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	var step ScriptStep
	if m.next < len(m.steps) {
		step = m.steps[m.next]
		m.next++
	}

	go func() {
		defer close(respCh)
		defer close(errCh)
		if step.Err != nil {
			errCh <- step.Err
			return
		}
		if req.Stream {
			for _, d := range step.Deltas {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: d}:
				}
			}
		}
		finish := "stop"
		if len(step.ToolCalls) > 0 {
			finish = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Partial: false, Text: step.Text, ToolCalls: step.ToolCalls, FinishReason: finish}:
		}
	}()
	return respCh, errCh
}

// Info implements the Model interface.
func (m *ScriptedModel) Info() Info { return m.info }
