package core

import "context"

// Store persists threads and their ordered message history. Implementations
// must be safe for concurrent use across different thread ids; for a single
// thread id the session coordinator is the sole writer serialization point.
//
// Contract:
//   - GetThread returns ErrThreadNotFound for unknown ids
//   - SaveThread upserts by id and refreshes Updated
//   - GetMessages returns messages in ascending creation order, capped at
//     limit (limit <= 0 means unbounded)
//   - SaveMessage is append-only and fails with ErrThreadNotFound when the
//     parent thread is absent; it is atomic with respect to concurrent reads
//   - DeleteThread cascades to messages and reports whether anything existed
type Store interface {
	GetThread(ctx context.Context, id string) (*Thread, error)
	SaveThread(ctx context.Context, t *Thread) (*Thread, error)
	GetMessages(ctx context.Context, threadID string, limit int) ([]Message, error)
	SaveMessage(ctx context.Context, m *Message) (*Message, error)
	DeleteThread(ctx context.Context, id string) (bool, error)
	HealthCheck(ctx context.Context) bool
}
