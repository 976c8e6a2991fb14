package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InProcess is a Notifier backed by in-process timers. It stands in for a
// platform notification center on headless clients (CLI, tests) and keeps
// the at-most-one-pending-per-id contract.
type InProcess struct {
	log *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	fired   func(id, title, body string)
}

// NewInProcess creates an in-process notifier. fired is invoked when an
// alert fires; nil means fired alerts are only logged.
func NewInProcess(log *zap.Logger, fired func(id, title, body string)) *InProcess {
	if log == nil {
		log = zap.NewNop()
	}
	return &InProcess{log: log, pending: make(map[string]*time.Timer), fired: fired}
}

// Schedule arms a timer for id, replacing any pending one.
func (n *InProcess) Schedule(_ context.Context, id string, fireAt time.Time, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.pending[id]; ok {
		t.Stop()
	}
	n.pending[id] = time.AfterFunc(time.Until(fireAt), func() {
		n.mu.Lock()
		delete(n.pending, id)
		n.mu.Unlock()
		n.log.Info("alert fired", zap.String("id", id), zap.String("title", title))
		if n.fired != nil {
			n.fired(id, title, body)
		}
	})
	return nil
}

// Cancel stops and forgets any pending timer for id.
func (n *InProcess) Cancel(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.pending[id]; ok {
		t.Stop()
		delete(n.pending, id)
	}
	return nil
}

// PendingCount reports how many alerts are currently armed.
func (n *InProcess) PendingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}
