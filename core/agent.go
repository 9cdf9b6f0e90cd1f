package core

import "context"

// Invocation is the payload handed to an agent for one turn. History is the
// thread's conversation in ascending creation order; Meta carries
// caller-supplied identity/preference data passed through opaquely.
type Invocation struct {
	ThreadID     string
	InvocationID string
	History      []Message
	Meta         map[string]any
	HandoffDepth int // number of delegations already performed this turn
}

// Agent is a named policy that consumes conversation history plus its bound
// tools and produces a stream of computation events.
//
// Implementations must:
//   - Close the returned channel when the stream is exhausted
//   - Respect context cancellation at every yielded event
//   - End the stream with a done, error or delegate event; a bare close is
//     treated as done by the translator
//
// The channel idiom gives the pull-based lazy sequence the protocol needs: a
// bounded buffer means an unconsumed stream suspends the producing
// computation, so backpressure is automatic.
type Agent interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv Invocation) (<-chan ComputationEvent, error)
}
