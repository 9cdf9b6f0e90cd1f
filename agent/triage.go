package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/logging"
	"github.com/convoral/convoral/tool"
)

// TriageTarget declares one agent the triage agent may hand a conversation
// to, with the keywords that select it.
type TriageTarget struct {
	Name        string
	Description string
	Keywords    []string
}

// TriageAgentOptions configures a TriageAgent instance.
type TriageAgentOptions struct {
	// EventBufferSize sets channel buffering for emitted computation events.
	EventBufferSize int
	// Logger receives triage decision log lines.
	Logger logging.Logger
}

// TriageAgent is the deterministic fallback agent. It inspects the latest
// user message against its target keyword lists; on a match it emits a
// delegate event for the session coordinator to act on, otherwise it calls
// its capability introspection tool and answers with a summary of what the
// system can do. It never talks to a model.
type TriageAgent struct {
	BaseAgent
	targets []TriageTarget
	tools   *tool.Registry
	bufSize int
	logger  logging.Logger
}

// NewTriageAgent creates a triage agent over the given handoff targets. The
// describe_capabilities tool is registered automatically.
func NewTriageAgent(name string, targets []TriageTarget, optFns ...func(o *TriageAgentOptions)) *TriageAgent {
	opts := TriageAgentOptions{
		EventBufferSize: 8,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	a := &TriageAgent{
		BaseAgent: NewBaseAgent(name),
		targets:   targets,
		bufSize:   opts.EventBufferSize,
		logger:    opts.Logger,
	}
	a.SetDescription("Routes conversations to the best-suited specialized agent.")
	a.tools = tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger }).
		MustRegister(tool.NewDescribeCapabilitiesTool(a.capabilities))
	return a
}

// Tools returns the triage agent's registry (the introspection tool only).
func (a *TriageAgent) Tools() *tool.Registry { return a.tools }

func (a *TriageAgent) capabilities() []tool.Capability {
	caps := make([]tool.Capability, 0, len(a.targets))
	for _, t := range a.targets {
		caps = append(caps, tool.Capability{Agent: t.Name, Description: t.Description})
	}
	return caps
}

// Run implements core.Agent.
func (a *TriageAgent) Run(ctx context.Context, inv core.Invocation) (<-chan core.ComputationEvent, error) {
	out := make(chan core.ComputationEvent, a.bufSize)
	go a.run(ctx, inv, out)
	return out, nil
}

func (a *TriageAgent) run(ctx context.Context, inv core.Invocation, out chan<- core.ComputationEvent) {
	defer close(out)

	text := latestUserText(inv.History)
	if target := a.match(text); target != "" {
		a.logger.Info("triage.delegate", "target", target, "invocation_id", inv.InvocationID)
		emit(ctx, out, core.NewDelegate(target))
		return
	}

	a.logger.Debug("triage.no_match", "invocation_id", inv.InvocationID)
	if !emit(ctx, out, core.NewToolInvocation("describe_capabilities", map[string]any{})) {
		return
	}
	result, err := a.tools.Invoke(ctx, "describe_capabilities", map[string]any{}, 0)
	if err != nil {
		info := core.InfoFromError(err)
		if !emit(ctx, out, core.NewToolFailure("describe_capabilities", info)) {
			return
		}
		emit(ctx, out, core.NewTextDelta("I could not determine which agent should handle this."))
		emit(ctx, out, core.NewDone())
		return
	}

	caps := result.([]tool.Capability)
	if !emit(ctx, out, core.NewToolResult("describe_capabilities", coerceOutput(caps))) {
		return
	}
	if !emit(ctx, out, core.NewTextDelta(summarize(caps))) {
		return
	}
	emit(ctx, out, core.NewDone())
}

// match returns the first target whose keywords appear in the message,
// in declaration order.
func (a *TriageAgent) match(text string) string {
	lowered := strings.ToLower(text)
	for _, t := range a.targets {
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return t.Name
			}
		}
	}
	return ""
}

func latestUserText(history []core.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}

func summarize(caps []tool.Capability) string {
	if len(caps) == 0 {
		return "No specialized agents are currently available."
	}
	var b strings.Builder
	b.WriteString("I can route your request to one of these agents:\n")
	for _, c := range caps {
		fmt.Fprintf(&b, "- %s: %s\n", c.Agent, c.Description)
	}
	b.WriteString("Could you say more about what you need?")
	return b.String()
}
