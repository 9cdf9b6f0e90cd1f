package core

// ComputationKind tags the variant of a ComputationEvent.
type ComputationKind string

// Computation event kinds produced by agents. They exist only for the
// duration of one Agent.Run call; only their effects (finalized text, tool
// results) are ever persisted.
const (
	ComputeTextDelta      ComputationKind = "text_delta"
	ComputeDelegate       ComputationKind = "delegate"
	ComputeToolInvocation ComputationKind = "tool_invocation"
	ComputeToolResult     ComputationKind = "tool_result"
	ComputeError          ComputationKind = "error"
	ComputeDone           ComputationKind = "done"
)

// ComputationEvent is the internal unit of agent output consumed by the
// stream translator. A tagged variant; only the fields relevant to Kind are
// populated.
type ComputationEvent struct {
	Kind   ComputationKind
	Text   string         // text_delta: the incremental fragment
	Target string         // delegate: target agent name
	Tool   string         // tool_invocation / tool_result: tool name
	Args   map[string]any // tool_invocation: parsed arguments
	Result string         // tool_result: string-coerced output
	Err    *ErrorInfo     // tool_result failure or error
}

// NewTextDelta builds a text fragment event.
func NewTextDelta(text string) ComputationEvent {
	return ComputationEvent{Kind: ComputeTextDelta, Text: text}
}

// NewDelegate builds a handoff request naming the target agent. The
// coordinator, not the emitting agent, performs the re-dispatch.
func NewDelegate(target string) ComputationEvent {
	return ComputationEvent{Kind: ComputeDelegate, Target: target}
}

// NewToolInvocation builds a tool invocation announcement.
func NewToolInvocation(tool string, args map[string]any) ComputationEvent {
	return ComputationEvent{Kind: ComputeToolInvocation, Tool: tool, Args: args}
}

// NewToolResult builds a successful tool outcome event.
func NewToolResult(tool, output string) ComputationEvent {
	return ComputationEvent{Kind: ComputeToolResult, Tool: tool, Result: output}
}

// NewToolFailure builds a failed tool outcome event. Tool failures are scoped
// to the one call and do not terminate the turn by themselves.
func NewToolFailure(tool string, info *ErrorInfo) ComputationEvent {
	return ComputationEvent{Kind: ComputeToolResult, Tool: tool, Err: info}
}

// NewComputeError builds a turn-ending failure event.
func NewComputeError(info *ErrorInfo) ComputationEvent {
	return ComputationEvent{Kind: ComputeError, Err: info}
}

// NewDone builds the terminal success marker for an agent stream.
func NewDone() ComputationEvent { return ComputationEvent{Kind: ComputeDone} }
