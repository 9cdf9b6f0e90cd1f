package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author category of a message.
type Role string

// Message roles recognized by the store and agents.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Thread is a durable, ordered conversation container. The id is immutable
// and globally unique once assigned; Updated changes on every turn.
type Thread struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
}

// NewThread creates a thread with the given id (a fresh UUID when empty).
func NewThread(id string, metadata map[string]any) *Thread {
	if id == "" {
		id = NewID()
	}
	now := time.Now().UTC()
	return &Thread{ID: id, Metadata: metadata, Created: now, Updated: now}
}

// Clone returns a deep copy safe for independent mutation.
func (t *Thread) Clone() *Thread {
	clone := *t
	if t.Metadata != nil {
		clone.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Message belongs to exactly one thread. Messages within a thread are totally
// ordered by creation time; that order is the only order agents may rely on
// for conversation history.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Role     Role      `json:"role"`
	Parts    []Part    `json:"parts"`
	Created  time.Time `json:"created"`
}

// NewMessage constructs a message bound to a thread with a generated id.
func NewMessage(threadID string, role Role, parts ...Part) *Message {
	return &Message{
		ID:       NewID(),
		ThreadID: threadID,
		Role:     role,
		Parts:    parts,
		Created:  time.Now().UTC(),
	}
}

// Text concatenates the message's text parts preserving order.
func (m *Message) Text() string {
	return Content{Role: m.Role, Parts: m.Parts}.Text()
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	clone := *m
	clone.Parts = make([]Part, len(m.Parts))
	copy(clone.Parts, m.Parts)
	return &clone
}

// NewID generates a new unique identifier for threads, messages and events.
func NewID() string { return uuid.NewString() }
