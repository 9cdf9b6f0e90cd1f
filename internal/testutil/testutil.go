// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing agents, computation event scripts and
// protocol event assertions. Not intended for production usage.
package testutil

import (
	"context"

	"github.com/convoral/convoral/core"
)

// ScriptedAgent replays a fixed computation event sequence. Invocations are
// recorded for assertions.
type ScriptedAgent struct {
	AgentName   string
	Events      []core.ComputationEvent
	RunErr      error
	Invocations []core.Invocation
}

// NewScriptedAgent constructs an agent that emits the given events in order
// and then closes its stream.
func NewScriptedAgent(name string, events ...core.ComputationEvent) *ScriptedAgent {
	return &ScriptedAgent{AgentName: name, Events: events}
}

// Name implements core.Agent.
func (a *ScriptedAgent) Name() string { return a.AgentName }

// Description implements core.Agent.
func (a *ScriptedAgent) Description() string { return "scripted test agent " + a.AgentName }

// Run implements core.Agent.
func (a *ScriptedAgent) Run(ctx context.Context, inv core.Invocation) (<-chan core.ComputationEvent, error) {
	a.Invocations = append(a.Invocations, inv)
	if a.RunErr != nil {
		return nil, a.RunErr
	}
	out := make(chan core.ComputationEvent, len(a.Events)+1)
	go func() {
		defer close(out)
		for _, ev := range a.Events {
			select {
			case <-ctx.Done():
				return
			case out <- ev:
			}
		}
	}()
	return out, nil
}

// Collect drains a protocol event stream to completion.
func Collect(ch <-chan core.ProtocolEvent) []core.ProtocolEvent {
	var events []core.ProtocolEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// Types extracts the event type sequence for order assertions.
func Types(events []core.ProtocolEvent) []core.ProtocolType {
	types := make([]core.ProtocolType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

// TextContent wraps plain text as inbound user content.
func TextContent(text string) core.Content {
	return core.Content{Role: core.RoleUser, Parts: []core.Part{core.TextPart{Text: text}}}
}
