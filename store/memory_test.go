package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoral/convoral/core"
)

func TestInMemoryStore_ThreadLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.GetThread(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrThreadNotFound)

	saved, err := s.SaveThread(ctx, core.NewThread("t1", map[string]any{"user": "u1"}))
	require.NoError(t, err)
	assert.Equal(t, "t1", saved.ID)

	got, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Metadata["user"])

	deleted, err := s.DeleteThread(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteThread(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestInMemoryStore_SaveThreadPreservesCreated(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	first, err := s.SaveThread(ctx, core.NewThread("t1", nil))
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	second, err := s.SaveThread(ctx, core.NewThread("t1", map[string]any{"k": "v"}))
	require.NoError(t, err)

	assert.Equal(t, first.Created, second.Created)
	assert.True(t, second.Updated.After(first.Updated) || second.Updated.Equal(first.Updated))
}

func TestInMemoryStore_MessagesOrderedAndLimited(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	_, err := s.SaveThread(ctx, core.NewThread("t1", nil))
	require.NoError(t, err)

	base := time.Now().UTC()
	for i, text := range []string{"one", "two", "three"} {
		m := core.NewMessage("t1", core.RoleUser, core.TextPart{Text: text})
		m.Created = base.Add(time.Duration(i) * time.Second)
		_, err := s.SaveMessage(ctx, m)
		require.NoError(t, err)
	}

	all, err := s.GetMessages(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Text())
	assert.Equal(t, "three", all[2].Text())

	last, err := s.GetMessages(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "two", last[0].Text())
	assert.Equal(t, "three", last[1].Text())
}

func TestInMemoryStore_SaveMessageRequiresThread(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.SaveMessage(context.Background(), core.NewMessage("ghost", core.RoleUser, core.TextPart{Text: "hi"}))
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
}

func TestInMemoryStore_GetMessagesRequiresThread(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.GetMessages(context.Background(), "ghost", 0)
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
}

func TestInMemoryStore_DeleteCascadesMessages(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	_, err := s.SaveThread(ctx, core.NewThread("t1", nil))
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, core.NewMessage("t1", core.RoleUser, core.TextPart{Text: "hi"}))
	require.NoError(t, err)

	_, err = s.DeleteThread(ctx, "t1")
	require.NoError(t, err)

	_, err = s.SaveThread(ctx, core.NewThread("t1", nil))
	require.NoError(t, err)
	msgs, err := s.GetMessages(ctx, "t1", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestInMemoryStore_ReturnsClones(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	_, err := s.SaveThread(ctx, core.NewThread("t1", map[string]any{"k": "v"}))
	require.NoError(t, err)

	got, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	got.Metadata["k"] = "mutated"

	again, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Metadata["k"])
}

func TestInMemoryStore_HealthCheck(t *testing.T) {
	assert.True(t, NewInMemoryStore().HealthCheck(context.Background()))
}
