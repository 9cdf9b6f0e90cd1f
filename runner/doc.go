// Package runner hosts the session coordinator: the single entry point that
// turns an inbound user message into a persisted turn and an ordered stream
// of protocol events.
//
// Respond enforces the per-thread serialization point (at most one turn in
// flight per thread), routes the message to an agent, carries one stream
// translator across any delegation handoffs, and persists the finalized
// assistant message only when the turn completes successfully.
package runner
