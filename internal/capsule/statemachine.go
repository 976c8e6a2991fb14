package capsule

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/internal/clock"
	"github.com/keepsake-app/keepsake/internal/model"
)

// Phase is the lifecycle position of a tracked room. Scheduled and Locked
// read identically at the data layer; the split exists for UI bookkeeping
// only (freshly configured vs steady-state locked).
type Phase int

const (
	PhaseNoCapsule Phase = iota
	PhaseScheduled
	PhaseLocked
	PhaseUnlocked
)

func (p Phase) String() string {
	switch p {
	case PhaseNoCapsule:
		return "no_capsule"
	case PhaseScheduled:
		return "scheduled"
	case PhaseLocked:
		return "locked"
	case PhaseUnlocked:
		return "unlocked"
	}
	return "unknown"
}

type tracked struct {
	room      model.Room
	phase     Phase
	announced bool
}

// StateMachine re-evaluates lock state for tracked rooms on a periodic
// tick and announces each room's unlock transition exactly once. There is
// no explicit unlock mutation anywhere: unlocking is purely time passing.
type StateMachine struct {
	clock    clock.Clock
	log      *zap.Logger
	onUnlock func(room model.Room)

	mu     sync.Mutex
	rooms  map[uuid.UUID]*tracked
	stopCh chan struct{}
	once   sync.Once
}

// NewStateMachine constructs a StateMachine. onUnlock is invoked once per
// room when its capsule opens; nil means transitions are only logged.
func NewStateMachine(clk clock.Clock, log *zap.Logger, onUnlock func(room model.Room)) *StateMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateMachine{
		clock:    clk,
		log:      log,
		onUnlock: onUnlock,
		rooms:    make(map[uuid.UUID]*tracked),
		stopCh:   make(chan struct{}),
	}
}

// Track registers or refreshes a room. Attaching a capsule with a future
// unlock enters Scheduled immediately; an edit that removes the capsule
// resets to NoCapsule. A room already open starts Unlocked with its
// announcement spent, so tracking never re-announces an old unlock. A
// refresh of a sealed room whose capsule has since opened is left sealed
// so the next Tick performs the transition and fires the announcement.
func (s *StateMachine) Track(room model.Room) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.rooms[room.ID]
	if !ok {
		t = &tracked{}
		s.rooms[room.ID] = t
	}
	t.room = room

	switch {
	case room.Capsule == nil:
		t.phase = PhaseNoCapsule
		t.announced = false
	case Locked(room.Capsule, room.CreatedAt, now):
		t.phase = PhaseScheduled
		t.announced = false
	default:
		switch t.phase {
		case PhaseScheduled, PhaseLocked:
			// The capsule opened between ticks. Keep the sealed phase so
			// the next Tick makes the transition and announces it.
		default:
			t.announced = true // already open when first seen; nothing to announce
			t.phase = PhaseUnlocked
		}
	}
}

// Untrack forgets a room, typically after deletion.
func (s *StateMachine) Untrack(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}

// PhaseOf reports the current phase of a tracked room.
func (s *StateMachine) PhaseOf(id uuid.UUID) (Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rooms[id]
	if !ok {
		return PhaseNoCapsule, false
	}
	return t.phase, true
}

// Tick re-evaluates every tracked room once. Exposed for tests and for
// callers that drive their own cadence.
func (s *StateMachine) Tick() {
	now := s.clock.Now()

	var fire []model.Room
	s.mu.Lock()
	for _, t := range s.rooms {
		switch t.phase {
		case PhaseNoCapsule, PhaseUnlocked:
			continue
		}
		if Locked(t.room.Capsule, t.room.CreatedAt, now) {
			// Scheduled settles into Locked after its first tick.
			t.phase = PhaseLocked
			continue
		}
		t.phase = PhaseUnlocked
		if !t.announced {
			t.announced = true
			fire = append(fire, t.room)
		}
	}
	s.mu.Unlock()

	for _, room := range fire {
		s.log.Info("capsule unlocked", zap.String("room", room.ID.String()), zap.String("name", room.Name))
		if s.onUnlock != nil {
			s.onUnlock(room)
		}
	}
}

// Start runs the tick loop at the given interval (typically 1s) until Stop.
func (s *StateMachine) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Tick()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the tick loop.
func (s *StateMachine) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}
