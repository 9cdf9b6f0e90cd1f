package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/convoral/convoral/core"
)

// InMemoryStore is a thread-safe core.Store backed by maps. All reads and
// writes clone, so callers can never mutate stored state through a returned
// pointer.
type InMemoryStore struct {
	mu       sync.RWMutex
	threads  map[string]*core.Thread
	messages map[string][]*core.Message // threadID -> append order
}

var _ core.Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		threads:  make(map[string]*core.Thread),
		messages: make(map[string][]*core.Message),
	}
}

// GetThread implements core.Store.
func (s *InMemoryStore) GetThread(_ context.Context, id string) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, core.ErrThreadNotFound
	}
	return t.Clone(), nil
}

// SaveThread implements core.Store.
func (s *InMemoryStore) SaveThread(_ context.Context, t *core.Thread) (*core.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := t.Clone()
	stored.Updated = time.Now().UTC()
	if existing, ok := s.threads[t.ID]; ok {
		stored.Created = existing.Created
	}
	s.threads[t.ID] = stored
	return stored.Clone(), nil
}

// GetMessages implements core.Store. Messages come back in ascending
// creation order; limit <= 0 returns everything.
func (s *InMemoryStore) GetMessages(_ context.Context, threadID string, limit int) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.threads[threadID]; !ok {
		return nil, core.ErrThreadNotFound
	}
	stored := s.messages[threadID]
	msgs := make([]core.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, *m.Clone())
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Created.Before(msgs[j].Created) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// SaveMessage implements core.Store.
func (s *InMemoryStore) SaveMessage(_ context.Context, m *core.Message) (*core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[m.ThreadID]
	if !ok {
		return nil, core.ErrThreadNotFound
	}
	stored := m.Clone()
	if stored.ID == "" {
		stored.ID = core.NewID()
	}
	if stored.Created.IsZero() {
		stored.Created = time.Now().UTC()
	}
	s.messages[m.ThreadID] = append(s.messages[m.ThreadID], stored)
	thread.Updated = time.Now().UTC()
	return stored.Clone(), nil
}

// DeleteThread implements core.Store. Messages cascade.
func (s *InMemoryStore) DeleteThread(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return false, nil
	}
	delete(s.threads, id)
	delete(s.messages, id)
	return true, nil
}

// HealthCheck implements core.Store.
func (s *InMemoryStore) HealthCheck(_ context.Context) bool { return true }
