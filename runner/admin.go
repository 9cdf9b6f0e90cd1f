package runner

import (
	"context"

	"github.com/convoral/convoral/core"
)

// HealthStatus reports coordinator liveness and collaborator reachability.
type HealthStatus struct {
	Status           string `json:"status"` // "ok" or "degraded"
	StorageReachable bool   `json:"storage_reachable"`
}

// CreateThread creates a thread explicitly. An empty id gets a generated
// one; metadata is stored opaquely.
func (r *Runner) CreateThread(ctx context.Context, id string, metadata map[string]any) (*core.Thread, error) {
	t, err := r.store.SaveThread(ctx, core.NewThread(id, metadata))
	if err != nil {
		return nil, err
	}
	r.logger.Info("runner.thread.created", "thread_id", t.ID)
	return t, nil
}

// GetThread fetches a thread by id, core.ErrThreadNotFound when absent.
func (r *Runner) GetThread(ctx context.Context, id string) (*core.Thread, error) {
	return r.store.GetThread(ctx, id)
}

// GetMessages returns a thread's history in ascending creation order.
// limit <= 0 returns everything.
func (r *Runner) GetMessages(ctx context.Context, threadID string, limit int) ([]core.Message, error) {
	return r.store.GetMessages(ctx, threadID, limit)
}

// ThreadWithMessages bundles a thread and its full history.
type ThreadWithMessages struct {
	Thread   *core.Thread   `json:"thread"`
	Messages []core.Message `json:"messages"`
}

// GetThreadWithMessages fetches a thread together with its history.
func (r *Runner) GetThreadWithMessages(ctx context.Context, id string) (*ThreadWithMessages, error) {
	t, err := r.store.GetThread(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := r.store.GetMessages(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return &ThreadWithMessages{Thread: t, Messages: msgs}, nil
}

// DeleteThread removes a thread and its messages. The bool reports whether
// anything existed. A thread with a turn in flight cannot be deleted.
func (r *Runner) DeleteThread(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	if _, inFlight := r.busy[id]; inFlight {
		r.mu.Unlock()
		return false, core.ErrThreadBusy
	}
	r.mu.Unlock()
	return r.store.DeleteThread(ctx, id)
}

// Health reports whether the coordinator and its storage are usable.
func (r *Runner) Health(ctx context.Context) HealthStatus {
	reachable := r.store.HealthCheck(ctx)
	status := "ok"
	if !reachable {
		status = "degraded"
	}
	return HealthStatus{Status: status, StorageReachable: reachable}
}

// Agents returns the registered agent names.
func (r *Runner) Agents() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}
