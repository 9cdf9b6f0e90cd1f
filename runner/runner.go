package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/logging"
	"github.com/convoral/convoral/metrics"
	"github.com/convoral/convoral/router"
	"github.com/convoral/convoral/stream"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxHandoffDepth bounds delegations per turn. Depth 1 means one handoff,
	// triage to specialist; a second delegate event fails the turn.
	MaxHandoffDepth int
	// EventBufferSize sets channel buffering for protocol events. An
	// unconsumed stream suspends the turn once the buffer fills.
	EventBufferSize int
	// HistoryLimit caps the messages loaded per turn as agent context.
	// Zero or negative loads the full thread history.
	HistoryLimit int
	// Logger receives per-turn structured log lines.
	Logger logging.Logger
	// Metrics receives turn instrumentation; nil records nothing.
	Metrics *metrics.Metrics
}

// Runner is the session coordinator. Public methods are safe for concurrent
// use; for any single thread id, at most one turn is in flight at a time.
type Runner struct {
	store  core.Store
	agents map[string]core.Agent
	routes *router.Router

	maxHandoffDepth int
	eventBufferSize int
	historyLimit    int
	logger          logging.Logger
	metrics         *metrics.Metrics

	mu   sync.Mutex
	busy map[string]struct{}
}

// New constructs a Runner over the given store, routing table and agent set.
// Every agent named by a routing rule or the fallback should be present.
func New(store core.Store, routes *router.Router, agents []core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxHandoffDepth: 1,
		EventBufferSize: 64,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	byName := make(map[string]core.Agent, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}
	return &Runner{
		store:           store,
		agents:          byName,
		routes:          routes,
		maxHandoffDepth: opts.MaxHandoffDepth,
		eventBufferSize: opts.EventBufferSize,
		historyLimit:    opts.HistoryLimit,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		busy:            make(map[string]struct{}),
	}
}

// RespondOptions holds per-call overrides passed to Respond.
type RespondOptions struct {
	// Meta is caller-supplied identity/preference data handed to agents
	// opaquely. Never interpreted by the coordinator.
	Meta map[string]any
}

// Respond processes one user turn against a thread and returns the ordered
// protocol event stream. The channel closes when the turn is over; a turn
// that fails mid-stream ends with a single error event before the close.
//
// Unknown thread ids are created on first use. A second Respond for a thread
// whose turn is still in flight fails fast with core.ErrThreadBusy and has no
// side effects. Cancelling ctx abandons the turn without persisting any
// assistant output; the user message already saved stays.
func (r *Runner) Respond(ctx context.Context, threadID string, content core.Content, optFns ...func(o *RespondOptions)) (<-chan core.ProtocolEvent, error) {
	var opts RespondOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if threadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}

	out := make(chan core.ProtocolEvent, r.eventBufferSize)

	if content.IsEmpty() {
		// Rejected before any side effect; the stream still carries the
		// structured error so every caller reads failures the same way.
		ev := core.NewProtocolEvent(core.EventError)
		ev.Error = core.NewErrorInfo(core.CodeEmptyContent, "content has no usable parts")
		out <- ev
		close(out)
		return out, nil
	}

	r.mu.Lock()
	if _, inFlight := r.busy[threadID]; inFlight {
		r.mu.Unlock()
		return nil, core.ErrThreadBusy
	}
	r.busy[threadID] = struct{}{}
	r.mu.Unlock()

	go r.respond(ctx, threadID, content, opts.Meta, out)
	return out, nil
}

func (r *Runner) respond(ctx context.Context, threadID string, content core.Content, meta map[string]any, out chan<- core.ProtocolEvent) {
	start := time.Now()
	r.metrics.TurnStarted()
	status := "ok"
	agentName := ""
	defer func() {
		close(out)
		r.mu.Lock()
		delete(r.busy, threadID)
		r.mu.Unlock()
		r.metrics.TurnFinished(agentName, status, time.Since(start))
	}()

	tr := stream.NewTranslator()
	fail := func(err error) {
		status = "error"
		r.logger.Error("runner.turn.failed", "thread_id", threadID, "error", err.Error())
		r.send(ctx, out, tr.Fail(core.InfoFromError(err)))
	}

	if _, err := r.store.GetThread(ctx, threadID); err != nil {
		if !errors.Is(err, core.ErrThreadNotFound) {
			fail(err)
			return
		}
		if _, err := r.store.SaveThread(ctx, core.NewThread(threadID, nil)); err != nil {
			fail(err)
			return
		}
		r.logger.Info("runner.thread.created", "thread_id", threadID)
	}

	userMsg := core.NewMessage(threadID, core.RoleUser, content.Parts...)
	if _, err := r.store.SaveMessage(ctx, userMsg); err != nil {
		fail(err)
		return
	}

	history, err := r.store.GetMessages(ctx, threadID, r.historyLimit)
	if err != nil {
		fail(err)
		return
	}

	agentName = r.routes.Select(content.Text())
	invocationID := core.NewID()
	r.logger.Info("runner.turn.start", "thread_id", threadID, "invocation_id", invocationID, "agent", agentName)

	depth := 0
	for {
		ag, ok := r.agents[agentName]
		if !ok {
			fail(fmt.Errorf("%w: %s", core.ErrAgentNotFound, agentName))
			return
		}

		events, err := ag.Run(ctx, core.Invocation{
			ThreadID:     threadID,
			InvocationID: invocationID,
			History:      history,
			Meta:         meta,
			HandoffDepth: depth,
		})
		if err != nil {
			fail(err)
			return
		}

		target, ok := r.consume(ctx, out, tr, events)
		if !ok {
			if tr.Errored() != nil {
				status = "error"
				return
			}
			status = "cancelled"
			return
		}
		if target == "" {
			break
		}

		// Delegation: the translator is carried over so an open item stays
		// open while the next agent continues it.
		depth++
		if depth > r.maxHandoffDepth {
			fail(fmt.Errorf("%w: depth %d exceeds limit %d", core.ErrTooManyDelegations, depth, r.maxHandoffDepth))
			return
		}
		r.metrics.Delegated()
		r.logger.Info("runner.delegate", "thread_id", threadID, "from", agentName, "to", target, "depth", depth)
		history = append(history, *handoffNote(threadID, agentName, target))
		agentName = target
	}

	if ctx.Err() != nil {
		status = "cancelled"
		return
	}

	if !r.send(ctx, out, tr.Finish()) {
		status = "cancelled"
		return
	}

	if ctx.Err() != nil {
		status = "cancelled"
		return
	}
	if parts := tr.Parts(); len(parts) > 0 {
		// A failure here must still end the stream with an error event, not
		// a clean close for a turn that was never saved.
		if _, err := r.store.SaveMessage(ctx, core.NewMessage(threadID, core.RoleAssistant, parts...)); err != nil {
			fail(err)
			return
		}
	}
	r.logger.Info("runner.turn.done", "thread_id", threadID, "invocation_id", invocationID, "agent", agentName)
}

// consume drains one agent's event stream through the translator. It returns
// the delegation target when the agent handed off, or ("", true) on normal
// exhaustion. ("", false) means the turn is over: either a turn-ending error
// was forwarded (tr.Errored() is set) or the consumer cancelled.
func (r *Runner) consume(ctx context.Context, out chan<- core.ProtocolEvent, tr *stream.Translator, events <-chan core.ComputationEvent) (string, bool) {
	// Leaving the loop before the channel closes must not wedge an agent
	// that keeps emitting past its terminal event.
	drain := func() {
		go func() {
			for range events {
			}
		}()
	}
	for ev := range events {
		switch ev.Kind {
		case core.ComputeToolInvocation:
			r.metrics.ToolInvoked(ev.Tool, "started")
		case core.ComputeToolResult:
			if ev.Err != nil {
				r.metrics.ToolInvoked(ev.Tool, "error")
			} else {
				r.metrics.ToolInvoked(ev.Tool, "ok")
			}
		}

		if !r.send(ctx, out, tr.Feed(ev)) {
			drain()
			return "", false
		}
		switch ev.Kind {
		case core.ComputeDelegate:
			// Delegate is the agent's last event per the Agent contract.
			drain()
			return ev.Target, true
		case core.ComputeError:
			drain()
			return "", false
		}
	}
	return "", true
}

// send forwards protocol events to the client, honoring cancellation. The
// bounded out channel is what suspends the turn when the consumer stops
// pulling.
func (r *Runner) send(ctx context.Context, out chan<- core.ProtocolEvent, events []core.ProtocolEvent) bool {
	for _, ev := range events {
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case out <- ev:
			r.metrics.EventEmitted(string(ev.Type))
		}
	}
	return true
}

// handoffNote synthesizes the system message that tells the receiving agent
// why the conversation reached it. Context for this turn only; never
// persisted.
func handoffNote(threadID, from, to string) *core.Message {
	return core.NewMessage(threadID, core.RoleSystem, core.TextPart{
		Text: fmt.Sprintf("Conversation handed off from agent %q to agent %q. Continue assisting the user.", from, to),
	})
}
