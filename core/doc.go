// Package core provides the foundational domain types and contracts used by
// Convoral. It defines:
//
//   - Threads and Messages (durable, ordered conversation state)
//   - Content parts (closed polymorphic set: text, tool output references)
//   - ComputationEvent (internal, agent-produced stream units)
//   - ProtocolEvent (external, client-facing stream units)
//   - The Store interface for pluggable persistence backends
//   - The Agent interface and invocation payload
//   - The error taxonomy with stable machine-readable codes
//
// The package intentionally keeps implementation concerns (persistence,
// coordination, concrete agents) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
