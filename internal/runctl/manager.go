// Package runctl implements workflow concurrency groups: at most one run per
// group is in flight, and a new run either cancels the one it supersedes or
// waits for it to finish.
package runctl

import (
	"context"
	"sync"

	"github.com/gridci/gridci/internal/ctxlog"
)

// activeRun tracks one in-flight run of a concurrency group.
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager arbitrates run admission per concurrency group.
type Manager struct {
	mu     sync.Mutex
	active map[string]*activeRun
}

// NewManager creates an empty concurrency-group manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]*activeRun)}
}

// Acquire admits a run into the given group and returns the context the run
// must execute under, plus a release function to call when it finishes.
//
// With cancelInProgress set, any in-flight run of the same group is
// cancelled immediately and the new run proceeds. Without it, Acquire blocks
// until the in-flight run finishes or ctx is cancelled. An empty group never
// blocks and never cancels anything.
func (m *Manager) Acquire(ctx context.Context, group string, cancelInProgress bool) (context.Context, func(), error) {
	if group == "" {
		runCtx, cancel := context.WithCancel(ctx)
		return runCtx, cancel, nil
	}

	logger := ctxlog.FromContext(ctx).With("group", group)

	for {
		m.mu.Lock()
		prev := m.active[group]
		if prev == nil {
			runCtx, cancel := context.WithCancel(ctx)
			run := &activeRun{cancel: cancel, done: make(chan struct{})}
			m.active[group] = run

			var once sync.Once
			release := func() {
				once.Do(func() {
					m.mu.Lock()
					if m.active[group] == run {
						delete(m.active, group)
					}
					m.mu.Unlock()
					cancel()
					close(run.done)
				})
			}
			m.mu.Unlock()
			return runCtx, release, nil
		}

		if cancelInProgress {
			logger.Info("🛑 Cancelling superseded run in concurrency group.")
			prev.cancel()
		} else {
			logger.Info("⏳ Waiting for in-flight run in concurrency group.")
		}
		m.mu.Unlock()

		select {
		case <-prev.done:
			// Group slot freed; try again.
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// Active reports whether the group currently has an in-flight run.
func (m *Manager) Active(group string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[group]
	return ok
}
