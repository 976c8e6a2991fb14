// Package notify schedules fire-once unlock alerts against a notification collaborator.
package notify

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/internal/clock"
)

// Notifier is the notification collaborator: fire-once alerts with
// at-most-one-pending-per-id semantics.
type Notifier interface {
	// Schedule arms a single alert for id at fireAt.
	Schedule(ctx context.Context, id string, fireAt time.Time, title, body string) error
	// Cancel removes a pending alert for id; no-op if none exists.
	Cancel(ctx context.Context, id string) error
}

// Scheduler keeps at most one pending unlock alert per room. Scheduling is
// best-effort: a collaborator failure (e.g., permission denied) is logged
// and swallowed so it never blocks the room mutation that triggered it.
type Scheduler struct {
	notifier Notifier
	clock    clock.Clock
	log      *zap.Logger
}

// NewScheduler constructs a Scheduler over the given collaborator.
func NewScheduler(n Notifier, clk clock.Clock, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{notifier: n, clock: clk, log: log}
}

// Schedule arms the unlock alert for roomID at unlockAt, replacing any
// previously pending alert for the same room. An unlockAt in the past is a
// no-op: a past unlock must not generate a surprise alert on room edit.
func (s *Scheduler) Schedule(ctx context.Context, roomID uuid.UUID, unlockAt time.Time, title, body string) {
	if !s.clock.Now().Before(unlockAt) {
		s.Cancel(ctx, roomID)
		return
	}
	id := roomID.String()
	if err := s.notifier.Cancel(ctx, id); err != nil {
		s.log.Warn("cancel pending alert", zap.String("room", id), zap.Error(err))
	}
	if err := s.notifier.Schedule(ctx, id, unlockAt, title, body); err != nil {
		s.log.Warn("schedule alert", zap.String("room", id), zap.Time("fire_at", unlockAt), zap.Error(err))
	}
}

// Cancel removes any pending alert for roomID; no-op if none exists.
func (s *Scheduler) Cancel(ctx context.Context, roomID uuid.UUID) {
	if err := s.notifier.Cancel(ctx, roomID.String()); err != nil {
		s.log.Warn("cancel alert", zap.String("room", roomID.String()), zap.Error(err))
	}
}
