// Package convoral provides a high-level façade over the session coordinator
// and its collaborators (store, router, agents, tools & logging) enabling
// rapid construction of conversational agent systems. Most applications
// interact with this package by:
//  1. Creating a Convoral via New() (optionally overriding the default
//     in-memory store)
//  2. Registering specialized agents plus a triage fallback
//  3. Calling Respond and consuming the protocol event stream
//
// The façade delegates orchestration to runner.Runner while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply the SQLite store and
// a structured logger.
package convoral

import (
	"context"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/logging"
	"github.com/convoral/convoral/metrics"
	"github.com/convoral/convoral/router"
	"github.com/convoral/convoral/runner"
	"github.com/convoral/convoral/store"
)

// Options configures the Convoral instance.
type Options struct {
	// Store persists threads and messages (defaults to in-memory).
	Store core.Store

	// Router decides which agent handles an inbound message. When nil, every
	// message goes to the fallback agent named by Fallback.
	Router *router.Router

	// Fallback names the triage agent used when Router is nil or no rule
	// matches.
	Fallback string

	// MaxHandoffDepth bounds delegations per turn.
	MaxHandoffDepth int

	// EventBufferSize sets the channel buffer size for protocol events.
	EventBufferSize int

	// HistoryLimit caps the conversation history loaded per turn.
	HistoryLimit int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Metrics receives turn instrumentation; nil records nothing.
	Metrics *metrics.Metrics
}

// Convoral is the high-level façade aggregating the coordinator and its
// collaborators.
type Convoral struct {
	runner *runner.Runner
}

// New creates a Convoral instance over the given agents with optional
// overrides. Any unset collaborator falls back to a safe in-memory default.
func New(agents []core.Agent, optFns ...func(o *Options)) *Convoral {
	opts := Options{
		MaxHandoffDepth: 1,
		EventBufferSize: 64,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}
	if opts.Router == nil {
		opts.Router = router.New(opts.Fallback)
	}
	r := runner.New(opts.Store, opts.Router, agents, func(o *runner.Options) {
		o.MaxHandoffDepth = opts.MaxHandoffDepth
		o.EventBufferSize = opts.EventBufferSize
		o.HistoryLimit = opts.HistoryLimit
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	return &Convoral{runner: r}
}

// Respond processes one user turn. See runner.Runner.Respond.
func (c *Convoral) Respond(ctx context.Context, threadID string, content core.Content, optFns ...func(o *runner.RespondOptions)) (<-chan core.ProtocolEvent, error) {
	return c.runner.Respond(ctx, threadID, content, optFns...)
}

// RespondText is a convenience wrapper for plain text input.
func (c *Convoral) RespondText(ctx context.Context, threadID, text string) (<-chan core.ProtocolEvent, error) {
	return c.runner.Respond(ctx, threadID, core.Content{
		Role:  core.RoleUser,
		Parts: []core.Part{core.TextPart{Text: text}},
	})
}

// Runner exposes the underlying coordinator for thread administration.
func (c *Convoral) Runner() *runner.Runner { return c.runner }
