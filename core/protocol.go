package core

// ProtocolType tags the variant of a ProtocolEvent.
type ProtocolType string

// Protocol event types delivered to clients. For any item id, item_created
// precedes all item_updated events for that id, which precede exactly one
// item_completed — unless the turn ends in a top-level error, in which case
// the open item is abandoned.
const (
	EventItemCreated       ProtocolType = "item_created"
	EventItemUpdated       ProtocolType = "item_updated"
	EventItemCompleted     ProtocolType = "item_completed"
	EventDelegationStarted ProtocolType = "delegation_started"
	EventToolStarted       ProtocolType = "tool_started"
	EventToolCompleted     ProtocolType = "tool_completed"
	EventError             ProtocolType = "error"
)

// ProtocolEvent is the externally observable, ordered unit of streamed
// output. EventID is unique per event; ItemID correlates the
// created/updated/completed lifecycle of one logical output item.
//
// item_updated carries the accumulated text so far, not just the delta:
// clients receive replace-with-latest-snapshot semantics, which keeps
// reassembly trivial and tolerates dropped intermediate updates.
type ProtocolEvent struct {
	Type    ProtocolType `json:"type"`
	EventID string       `json:"event_id"`
	ItemID  string       `json:"item_id,omitempty"`
	Text    string       `json:"text,omitempty"`   // item_updated / item_completed snapshot
	Agent   string       `json:"agent,omitempty"`  // delegation_started target
	Tool    string       `json:"tool,omitempty"`   // tool_started / tool_completed
	Output  string       `json:"output,omitempty"` // tool_completed string-coerced output
	Error   *ErrorInfo   `json:"error,omitempty"`  // error / failed tool_completed payload
}

// NewProtocolEvent constructs an event of the given type with a fresh id.
func NewProtocolEvent(t ProtocolType) ProtocolEvent {
	return ProtocolEvent{Type: t, EventID: NewID()}
}
