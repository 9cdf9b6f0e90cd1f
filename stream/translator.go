package stream

import (
	"strings"

	"github.com/convoral/convoral/core"
)

// Translator converts an agent's internal computation events into the
// externally observable protocol. One instance serves one turn and is
// carried across delegation hops, so an output item opened before a handoff
// stays open while the next agent continues it.
//
// Ordering guarantees, per item id: item_created precedes all item_updated
// events, which precede exactly one item_completed. A turn-ending error
// abandons the open item; no item_completed follows and all later input is
// suppressed. A turn that produces no text produces no item events at all.
type Translator struct {
	itemID   string
	text     strings.Builder
	created  bool
	pending  map[string]bool
	parts    []core.Part
	errInfo  *core.ErrorInfo
	finished bool
}

// NewTranslator creates a translator for one turn.
func NewTranslator() *Translator {
	return &Translator{pending: make(map[string]bool)}
}

// Feed translates one computation event into zero or more protocol events.
// After a turn-ending error it returns nil for all further input.
func (t *Translator) Feed(ev core.ComputationEvent) []core.ProtocolEvent {
	if t.errInfo != nil || t.finished {
		return nil
	}
	switch ev.Kind {
	case core.ComputeTextDelta:
		return t.feedText(ev.Text)
	case core.ComputeToolInvocation:
		return t.feedToolInvocation(ev.Tool)
	case core.ComputeToolResult:
		return t.feedToolResult(ev)
	case core.ComputeDelegate:
		return t.feedDelegate(ev.Target)
	case core.ComputeError:
		return t.feedError(ev.Err)
	case core.ComputeDone:
		return t.finish()
	default:
		return nil
	}
}

// Finish closes out the turn after the (final) agent stream is exhausted. A
// bare channel close counts as done. Idempotent.
func (t *Translator) Finish() []core.ProtocolEvent {
	if t.errInfo != nil {
		return nil
	}
	return t.finish()
}

// Fail injects a turn-ending failure discovered outside the agent stream,
// for example a storage error while persisting the finalized turn. Unlike
// Feed it is honored after Finish, so a failure between finalization and
// delivery still surfaces as the turn's single error event.
func (t *Translator) Fail(info *core.ErrorInfo) []core.ProtocolEvent {
	if t.errInfo != nil {
		return nil
	}
	return t.feedError(info)
}

// Snapshot returns the accumulated item text so far.
func (t *Translator) Snapshot() string { return t.text.String() }

// Errored returns the turn-ending failure, if any.
func (t *Translator) Errored() *core.ErrorInfo { return t.errInfo }

// Finished reports whether the turn completed successfully.
func (t *Translator) Finished() bool { return t.finished && t.errInfo == nil }

// Parts returns the persistable outcome of a successfully finished turn:
// tool result parts in completion order followed by the finalized text, if
// any. Empty until Finish, and always empty for an errored turn.
func (t *Translator) Parts() []core.Part {
	if !t.finished || t.errInfo != nil {
		return nil
	}
	out := make([]core.Part, len(t.parts))
	copy(out, t.parts)
	return out
}

func (t *Translator) feedText(delta string) []core.ProtocolEvent {
	if delta == "" {
		return nil
	}
	var events []core.ProtocolEvent
	if !t.created {
		t.created = true
		t.itemID = core.NewID()
		created := core.NewProtocolEvent(core.EventItemCreated)
		created.ItemID = t.itemID
		events = append(events, created)
	}
	t.text.WriteString(delta)
	updated := core.NewProtocolEvent(core.EventItemUpdated)
	updated.ItemID = t.itemID
	updated.Text = t.text.String()
	return append(events, updated)
}

func (t *Translator) feedToolInvocation(name string) []core.ProtocolEvent {
	// Repeated announcements for a call already in flight collapse into one
	// tool_started.
	if t.pending[name] {
		return nil
	}
	t.pending[name] = true
	ev := core.NewProtocolEvent(core.EventToolStarted)
	ev.Tool = name
	return []core.ProtocolEvent{ev}
}

func (t *Translator) feedToolResult(in core.ComputationEvent) []core.ProtocolEvent {
	var events []core.ProtocolEvent
	// A result without a prior announcement still surfaces a tool_started so
	// clients always see the pair.
	if !t.pending[in.Tool] {
		started := core.NewProtocolEvent(core.EventToolStarted)
		started.Tool = in.Tool
		events = append(events, started)
	}
	delete(t.pending, in.Tool)

	completed := core.NewProtocolEvent(core.EventToolCompleted)
	completed.Tool = in.Tool
	completed.Output = in.Result
	completed.Error = in.Err
	t.parts = append(t.parts, core.ToolResultPart{Tool: in.Tool, Output: in.Result, Err: in.Err})
	return append(events, completed)
}

func (t *Translator) feedDelegate(target string) []core.ProtocolEvent {
	ev := core.NewProtocolEvent(core.EventDelegationStarted)
	ev.Agent = target
	return []core.ProtocolEvent{ev}
}

func (t *Translator) feedError(info *core.ErrorInfo) []core.ProtocolEvent {
	t.errInfo = info
	ev := core.NewProtocolEvent(core.EventError)
	ev.Error = info
	return []core.ProtocolEvent{ev}
}

func (t *Translator) finish() []core.ProtocolEvent {
	if t.finished {
		return nil
	}
	t.finished = true
	if !t.created {
		return nil
	}
	if text := t.text.String(); text != "" {
		t.parts = append(t.parts, core.TextPart{Text: text})
	}
	ev := core.NewProtocolEvent(core.EventItemCompleted)
	ev.ItemID = t.itemID
	ev.Text = t.text.String()
	return []core.ProtocolEvent{ev}
}
