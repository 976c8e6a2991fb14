// Package capsule computes lock state from capsule configs and drives the
// room lifecycle (no capsule -> scheduled -> locked -> unlocked).
package capsule

import (
	"time"

	"github.com/keepsake-app/keepsake/internal/model"
)

// UnlockAt returns the instant a capsule's content becomes visible:
// the fixed date for fixed-date mode, createdAt plus the countdown otherwise.
func UnlockAt(cfg model.CapsuleConfig, createdAt time.Time) time.Time {
	if cfg.Mode == model.ModeFixedDate {
		return cfg.FixedUnlockAt
	}
	return createdAt.Add(cfg.Duration.AsDuration())
}

// Locked reports whether the room is sealed at now. A nil config never
// locks. The boundary is inclusive of unlock: now == unlockAt is unlocked.
func Locked(cfg *model.CapsuleConfig, createdAt, now time.Time) bool {
	if cfg == nil {
		return false
	}
	return now.Before(UnlockAt(*cfg, createdAt))
}

// Remaining returns max(0, unlockAt-now). Zero for rooms without a capsule.
func Remaining(cfg *model.CapsuleConfig, createdAt, now time.Time) time.Duration {
	if cfg == nil {
		return 0
	}
	left := UnlockAt(*cfg, createdAt).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// LockStateAt derives the full lock state of a room at now.
func LockStateAt(room *model.Room, now time.Time) model.LockState {
	st := model.LockState{}
	if room.Capsule == nil {
		return st
	}
	st.UnlockAt = UnlockAt(*room.Capsule, room.CreatedAt)
	st.Locked = now.Before(st.UnlockAt)
	if st.Locked {
		st.Remaining = st.UnlockAt.Sub(now)
	}
	return st
}
