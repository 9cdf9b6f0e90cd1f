package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/logging"
	"github.com/convoral/convoral/model"
	"github.com/convoral/convoral/tool"
)

// ModelAgentOptions configures a ModelAgent instance. Use functional options
// with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// Instruction is the agent's natural-language policy, sent verbatim as
	// the model's system instructions. Configuration, not logic.
	Instruction string
	// ToolTimeout bounds each individual tool invocation.
	ToolTimeout time.Duration
	// MaxModelCalls limits model rounds per turn to stop runaway tool loops.
	MaxModelCalls int
	// MaxHistoryMessages caps how much conversation history reaches the model.
	MaxHistoryMessages int
	// EventBufferSize sets channel buffering for emitted computation events.
	EventBufferSize int
	// Logger receives per-round structured log lines.
	Logger logging.Logger
}

// ModelAgent is a specialized agent: it is bound to an inference collaborator
// and a fixed subset of the tool registry, and drives the model/tool loop for
// one turn. Text arrives as text_delta events; each model-requested tool call
// produces a tool_invocation then exactly one tool_result event. Tool
// failures are scoped to the one call and fed back to the model rather than
// terminating the turn.
type ModelAgent struct {
	BaseAgent
	llm           model.Model
	tools         *tool.Registry
	instruction   string
	toolTimeout   time.Duration
	maxModelCalls int
	maxHistory    int
	bufSize       int
	logger        logging.Logger
}

// NewModelAgent creates a model-backed agent bound to the given tool
// registry (typically a Subset of a shared registry).
func NewModelAgent(name string, llm model.Model, tools *tool.Registry, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        fmt.Sprintf("You are %s, a helpful assistant.", name),
		ToolTimeout:        15 * time.Second,
		MaxModelCalls:      10,
		MaxHistoryMessages: 20,
		EventBufferSize:    32,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if tools == nil {
		tools = tool.NewRegistry()
	}
	return &ModelAgent{
		BaseAgent:     NewBaseAgent(name),
		llm:           llm,
		tools:         tools,
		instruction:   opts.Instruction,
		toolTimeout:   opts.ToolTimeout,
		maxModelCalls: opts.MaxModelCalls,
		maxHistory:    opts.MaxHistoryMessages,
		bufSize:       opts.EventBufferSize,
		logger:        opts.Logger,
	}
}

// Tools returns the agent's bound registry.
func (a *ModelAgent) Tools() *tool.Registry { return a.tools }

// Run implements core.Agent. The returned channel is closed when the turn's
// computation is exhausted; the bounded buffer suspends the model round when
// the consumer stops pulling.
func (a *ModelAgent) Run(ctx context.Context, inv core.Invocation) (<-chan core.ComputationEvent, error) {
	out := make(chan core.ComputationEvent, a.bufSize)
	go a.run(ctx, inv, out)
	return out, nil
}

func (a *ModelAgent) run(ctx context.Context, inv core.Invocation, out chan<- core.ComputationEvent) {
	defer close(out)

	msgs := historyToModelMessages(inv.History, a.maxHistory)
	defs := a.tools.Definitions()
	sawDelta := false

	for round := 0; round < a.maxModelCalls; round++ {
		a.logger.Debug("agent.round.start", "agent", a.Name(), "round", round, "invocation_id", inv.InvocationID)

		respCh, errCh := a.llm.Generate(ctx, model.Request{
			Instructions: a.instruction,
			Messages:     msgs,
			Tools:        defs,
			Stream:       true,
		})

		var final *model.Response
		for resp := range respCh {
			if resp.Partial {
				if resp.Text != "" {
					sawDelta = true
					if !emit(ctx, out, core.NewTextDelta(resp.Text)) {
						return
					}
				}
				continue
			}
			r := resp
			final = &r
		}
		if err := <-errCh; err != nil {
			a.logger.Error("agent.model.error", "agent", a.Name(), "error", err.Error())
			emit(ctx, out, core.NewComputeError(core.NewErrorInfo(core.CodeAgentError, err.Error())))
			return
		}
		if final == nil {
			emit(ctx, out, core.NewDone())
			return
		}

		if len(final.ToolCalls) == 0 {
			// Models that stream emitted the text already; cover the
			// non-streaming ones with a single delta.
			if final.Text != "" && !sawDelta {
				if !emit(ctx, out, core.NewTextDelta(final.Text)) {
					return
				}
			}
			emit(ctx, out, core.NewDone())
			return
		}

		msgs = append(msgs, model.Message{Role: "assistant", ToolCalls: final.ToolCalls})
		results := make([]model.ToolResult, 0, len(final.ToolCalls))
		for _, call := range final.ToolCalls {
			result, ok := a.executeCall(ctx, out, call)
			if !ok {
				return
			}
			results = append(results, result)
		}
		msgs = append(msgs, model.Message{Role: "tool", ToolResults: results})
	}

	emit(ctx, out, core.NewComputeError(core.NewErrorInfo(core.CodeAgentError,
		fmt.Sprintf("model call limit (%d) exceeded", a.maxModelCalls))))
}

// executeCall announces, validates and runs one model-requested tool call,
// emitting exactly one tool_result. The bool result is false only when the
// consumer went away.
func (a *ModelAgent) executeCall(ctx context.Context, out chan<- core.ComputationEvent, call model.ToolCall) (model.ToolResult, bool) {
	args, parseErr := parseArguments(call.Arguments)
	if !emit(ctx, out, core.NewToolInvocation(call.Name, args)) {
		return model.ToolResult{}, false
	}

	var info *core.ErrorInfo
	var output string
	if parseErr != nil {
		info = core.NewErrorInfo(core.CodeValidation, fmt.Sprintf("malformed arguments: %v", parseErr))
	} else {
		result, err := a.tools.Invoke(ctx, call.Name, args, a.toolTimeout)
		if err != nil {
			if toolErr, ok := err.(*tool.ToolError); ok {
				info = toolErr.Info()
			} else {
				info = core.NewErrorInfo(core.CodeToolExecution, err.Error())
			}
		} else {
			output = coerceOutput(result)
		}
	}

	if info != nil {
		if !emit(ctx, out, core.NewToolFailure(call.Name, info)) {
			return model.ToolResult{}, false
		}
		return model.ToolResult{ID: call.ID, Name: call.Name, Output: info.Message, IsError: true}, true
	}
	if !emit(ctx, out, core.NewToolResult(call.Name, output)) {
		return model.ToolResult{}, false
	}
	return model.ToolResult{ID: call.ID, Name: call.Name, Output: output}, true
}

// emit delivers an event unless the consumer cancelled.
func emit(ctx context.Context, out chan<- core.ComputationEvent, ev core.ComputationEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

// historyToModelMessages converts stored messages into the provider-neutral
// form, keeping at most max entries from the end.
func historyToModelMessages(history []core.Message, max int) []model.Message {
	if max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}
	msgs := make([]model.Message, 0, len(history))
	for _, m := range history {
		text := m.Text()
		if text == "" {
			continue
		}
		msgs = append(msgs, model.Message{Role: string(m.Role), Text: text})
	}
	return msgs
}

// parseArguments decodes the model-supplied JSON argument string.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// coerceOutput renders a tool result as the string payload carried on
// tool_completed events and fed back to the model.
func coerceOutput(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
