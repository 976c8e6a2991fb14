// Package engine reconciles local room state with the backend and enforces
// lock-state and access rules on every read path.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/internal/backend"
	"github.com/keepsake-app/keepsake/internal/capsule"
	"github.com/keepsake-app/keepsake/internal/clock"
	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/policy"
)

const unlockTitle = "Time capsule unlocked"

// tombstoneTTL bounds how long a deleted room's tombstone is kept. It only
// has to outlive in-flight backend calls (the HTTP client times out well
// under this), so expired entries are pruned lazily wherever the map is
// touched.
const tombstoneTTL = time.Minute

// Engine is the room sync engine. The backend is the system of record;
// the engine holds an in-memory reconciled cache and never fabricates
// local records for failed mutations.
//
// Mutations for the same room id are serialized; reads are lock-free
// against the cache and safe to run with unlimited concurrency. The
// engine never retries: retry policy belongs to the caller.
type Engine struct {
	backend   backend.Backend
	sched     *notify.Scheduler
	clock     clock.Clock
	log       *zap.Logger
	retention time.Duration

	mu      sync.RWMutex
	rooms   map[uuid.UUID]*model.Room
	gone    map[uuid.UUID]time.Time // rooms deleted while a call was in flight, by deletion time
	muts    *roomLocks
	stopCh  chan struct{}
	stopped sync.Once
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithRetentionWindow overrides the purge retention window.
func WithRetentionWindow(w time.Duration) Option {
	return func(e *Engine) { e.retention = w }
}

// New constructs an Engine over its collaborators. log may be nil.
func New(b backend.Backend, sched *notify.Scheduler, clk clock.Clock, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		backend:   b,
		sched:     sched,
		clock:     clk,
		log:       log,
		retention: policy.DefaultRetentionWindow,
		rooms:     make(map[uuid.UUID]*model.Room),
		gone:      make(map[uuid.UUID]time.Time),
		muts:      newRoomLocks(),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- rooms ---

// CreateRoom validates the spec, persists it remotely and arms the unlock
// alert. On failure no local record is left behind: a retry creates the
// room once, not twice.
func (e *Engine) CreateRoom(ctx context.Context, spec model.RoomSpec) (*model.Room, error) {
	now := e.clock.Now()
	if err := spec.Validate(now); err != nil {
		return nil, err
	}
	if spec.ProvisionalID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		spec.ProvisionalID = id
	}

	room, err := e.backend.CreateRoom(ctx, spec)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.rooms[room.ID] = room
	e.mu.Unlock()

	if room.Capsule != nil {
		unlockAt := capsule.UnlockAt(*room.Capsule, room.CreatedAt)
		e.sched.Schedule(ctx, room.ID, unlockAt, unlockTitle, room.Name)
	}
	return room, nil
}

// UpdateRoom applies a partial patch. A capsule change re-arms or disarms
// the unlock alert as part of the same mutation.
func (e *Engine) UpdateRoom(ctx context.Context, id uuid.UUID, patch model.RoomPatch) (*model.Room, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty room id", errs.ErrValidation)
	}
	if err := patch.Validate(e.clock.Now()); err != nil {
		return nil, err
	}

	release := e.muts.acquire(id)
	defer release()

	room, err := e.backend.PatchRoom(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if _, deleted := e.gone[id]; deleted {
		// The room was deleted while this call was in flight; the
		// response must not resurrect a record or a notification.
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: room %s", errs.ErrNotFound, id)
	}
	e.rooms[room.ID] = room
	e.mu.Unlock()

	if room.Capsule != nil {
		unlockAt := capsule.UnlockAt(*room.Capsule, room.CreatedAt)
		e.sched.Schedule(ctx, room.ID, unlockAt, unlockTitle, room.Name)
	} else {
		e.sched.Cancel(ctx, room.ID)
	}
	return room, nil
}

// DeleteRoom deletes remotely, evicts the cached record and cancels any
// pending unlock alert. Rooms have no soft-delete tier; this is final.
func (e *Engine) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: empty room id", errs.ErrValidation)
	}

	release := e.muts.acquire(id)
	defer release()

	if err := e.backend.DeleteRoom(ctx, id); err != nil {
		return err
	}

	now := e.clock.Now()
	e.mu.Lock()
	delete(e.rooms, id)
	e.gone[id] = now
	e.pruneTombstones(now)
	e.mu.Unlock()

	e.sched.Cancel(ctx, id)
	return nil
}

// ListRooms fetches the caller's rooms and re-filters them through the
// access policy: the backend may legitimately over-fetch.
func (e *Engine) ListRooms(ctx context.Context, principal uuid.UUID) ([]model.Room, error) {
	rooms, err := e.backend.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return e.admit(rooms, principal), nil
}

// Discover fetches the public discover feed, filtered the same way.
func (e *Engine) Discover(ctx context.Context, principal uuid.UUID) ([]model.Room, error) {
	rooms, err := e.backend.ListDiscoverable(ctx)
	if err != nil {
		return nil, err
	}
	return e.admit(rooms, principal), nil
}

// pruneTombstones drops tombstones old enough that no call started before
// the deletion can still be in flight. Caller holds e.mu.
func (e *Engine) pruneTombstones(now time.Time) {
	for id, at := range e.gone {
		if now.Sub(at) > tombstoneTTL {
			delete(e.gone, id)
		}
	}
}

// admit keeps viewable rooms and reconciles them into the cache.
func (e *Engine) admit(rooms []model.Room, principal uuid.UUID) []model.Room {
	out := make([]model.Room, 0, len(rooms))
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneTombstones(e.clock.Now())
	for i := range rooms {
		r := rooms[i]
		if !policy.CanView(principal, &r) {
			continue
		}
		if _, deleted := e.gone[r.ID]; deleted {
			continue
		}
		e.rooms[r.ID] = &r
		out = append(out, r)
	}
	return out
}

// ResolveShareLink resolves a share token to its room. A link grants
// discovery, not authorization: the result still passes the access policy
// before any content is returned.
func (e *Engine) ResolveShareLink(ctx context.Context, principal uuid.UUID, token string) (*model.Room, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty share token", errs.ErrValidation)
	}
	room, err := e.backend.ResolveShareLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}
	e.mu.Lock()
	e.rooms[room.ID] = room
	e.mu.Unlock()
	return room, nil
}

// room returns the cached record, fetching and caching it on a miss.
func (e *Engine) room(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	e.mu.RLock()
	r, ok := e.rooms[id]
	e.mu.RUnlock()
	if ok {
		return r, nil
	}

	r, err := e.backend.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if _, deleted := e.gone[id]; !deleted {
		e.rooms[id] = r
	}
	e.mu.Unlock()
	return r, nil
}

// --- memories ---

// AddMemory validates and persists a new memory. Locked rooms accept
// writes: sealing hides content, it does not freeze the room.
func (e *Engine) AddMemory(ctx context.Context, principal uuid.UUID, spec model.MemorySpec) (*model.MemoryItem, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	room, err := e.room(ctx, spec.RoomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}

	release := e.muts.acquire(spec.RoomID)
	defer release()
	return e.backend.CreateMemory(ctx, spec)
}

// ListMemories returns the room's visible memories. This is the sealing
// enforcement point: a locked room yields an empty set, not an error,
// regardless of caller identity. Hidden memories are always omitted.
func (e *Engine) ListMemories(ctx context.Context, principal uuid.UUID, roomID uuid.UUID) ([]model.MemoryItem, error) {
	room, err := e.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}
	if capsule.Locked(room.Capsule, room.CreatedAt, e.clock.Now()) {
		return []model.MemoryItem{}, nil
	}

	items, err := e.backend.ListMemories(ctx, roomID)
	if err != nil {
		return nil, err
	}
	visible := make([]model.MemoryItem, 0, len(items))
	for _, it := range items {
		if it.Hidden() {
			continue
		}
		visible = append(visible, it)
	}
	return visible, nil
}

// SoftDeleteMemory hides a memory, starting its retention window.
func (e *Engine) SoftDeleteMemory(ctx context.Context, roomID, memoryID uuid.UUID) error {
	if roomID == uuid.Nil || memoryID == uuid.Nil {
		return fmt.Errorf("%w: empty room/memory id", errs.ErrValidation)
	}
	release := e.muts.acquire(roomID)
	defer release()
	return e.backend.HideMemory(ctx, memoryID)
}

// PurgeEligible permanently deletes the room's soft-deleted memories whose
// retention window has elapsed. Invoked by the periodic sweep, never by a
// read path. Returns the number purged.
func (e *Engine) PurgeEligible(ctx context.Context, roomID uuid.UUID) (int, error) {
	if roomID == uuid.Nil {
		return 0, fmt.Errorf("%w: empty room id", errs.ErrValidation)
	}

	release := e.muts.acquire(roomID)
	defer release()

	items, err := e.backend.ListMemories(ctx, roomID)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	purged := 0
	for _, it := range items {
		if !policy.PurgeEligible(it.HiddenAt, now, e.retention) {
			continue
		}
		if err := e.backend.PurgeMemory(ctx, it.ID); err != nil {
			e.log.Warn("purge memory", zap.String("memory", it.ID.String()), zap.Error(err))
			continue
		}
		purged++
	}
	return purged, nil
}

// --- queries ---

// CurrentLockState derives the room's lock state at now. Never cached.
func (e *Engine) CurrentLockState(room *model.Room, now time.Time) model.LockState {
	return capsule.LockStateAt(room, now)
}

// CanView reports whether principal may view the room's contents.
func (e *Engine) CanView(principal uuid.UUID, room *model.Room) bool {
	return policy.CanView(principal, room)
}

// CachedRooms returns a snapshot of the reconciled cache.
func (e *Engine) CachedRooms() []model.Room {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Room, 0, len(e.rooms))
	for _, r := range e.rooms {
		out = append(out, *r)
	}
	return out
}
