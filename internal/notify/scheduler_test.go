package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/internal/clock"
)

// fakeNotifier records calls and keeps at-most-one-pending-per-id state.
type fakeNotifier struct {
	pending     map[string]time.Time
	scheduleErr error
	schedules   int
	cancels     int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{pending: map[string]time.Time{}}
}

func (f *fakeNotifier) Schedule(_ context.Context, id string, fireAt time.Time, _, _ string) error {
	f.schedules++
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.pending[id] = fireAt
	return nil
}

func (f *fakeNotifier) Cancel(_ context.Context, id string) error {
	f.cancels++
	delete(f.pending, id)
	return nil
}

func TestScheduler_ScheduleIdempotentPerRoom(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	fake := newFakeNotifier()
	s := NewScheduler(fake, clk, zap.NewNop())

	roomID := uuid.Must(uuid.NewV4())
	fireAt := t0.Add(time.Hour)

	s.Schedule(context.Background(), roomID, fireAt, "t", "b")
	s.Schedule(context.Background(), roomID, fireAt, "t", "b")

	if len(fake.pending) != 1 {
		t.Fatalf("want exactly one pending alert, got %d", len(fake.pending))
	}
	if got := fake.pending[roomID.String()]; !got.Equal(fireAt) {
		t.Fatalf("pending at %v, want %v", got, fireAt)
	}
}

func TestScheduler_RearmReplacesInstant(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	fake := newFakeNotifier()
	s := NewScheduler(fake, clk, zap.NewNop())

	roomID := uuid.Must(uuid.NewV4())
	s.Schedule(context.Background(), roomID, t0.Add(time.Hour), "t", "b")
	s.Schedule(context.Background(), roomID, t0.Add(2*time.Hour), "t", "b")

	if got := fake.pending[roomID.String()]; !got.Equal(t0.Add(2 * time.Hour)) {
		t.Fatalf("rearm kept stale instant: %v", got)
	}
}

func TestScheduler_PastUnlockIsNoop(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	fake := newFakeNotifier()
	s := NewScheduler(fake, clk, zap.NewNop())

	roomID := uuid.Must(uuid.NewV4())
	s.Schedule(context.Background(), roomID, t0.Add(-time.Minute), "t", "b")
	if fake.schedules != 0 {
		t.Fatalf("past unlock must not schedule an alert")
	}

	// Boundary: unlockAt == now is already unlocked, so no alert either.
	s.Schedule(context.Background(), roomID, t0, "t", "b")
	if fake.schedules != 0 {
		t.Fatalf("unlockAt == now must not schedule an alert")
	}
}

func TestScheduler_PastUnlockClearsPrevious(t *testing.T) {
	// An edit that moves unlockAt into the past must also drop the alert
	// armed for the old future instant.
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	fake := newFakeNotifier()
	s := NewScheduler(fake, clk, zap.NewNop())

	roomID := uuid.Must(uuid.NewV4())
	s.Schedule(context.Background(), roomID, t0.Add(time.Hour), "t", "b")
	s.Schedule(context.Background(), roomID, t0.Add(-time.Minute), "t", "b")

	if len(fake.pending) != 0 {
		t.Fatalf("stale alert left pending: %v", fake.pending)
	}
}

func TestScheduler_FailureIsSwallowed(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	fake := newFakeNotifier()
	fake.scheduleErr = errors.New("permission denied")
	s := NewScheduler(fake, clk, zap.NewNop())

	// Must not panic or propagate: notification delivery is best-effort.
	s.Schedule(context.Background(), uuid.Must(uuid.NewV4()), t0.Add(time.Hour), "t", "b")
}

func TestScheduler_CancelNoopWhenNothingPending(t *testing.T) {
	clk := clock.NewManual(time.Now())
	fake := newFakeNotifier()
	s := NewScheduler(fake, clk, zap.NewNop())

	s.Cancel(context.Background(), uuid.Must(uuid.NewV4()))
	if len(fake.pending) != 0 {
		t.Fatalf("cancel must be a no-op")
	}
}
