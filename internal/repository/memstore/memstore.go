// Package memstore provides in-memory repository implementations, used by
// tests and by the server's -inmemory mode.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
)

// Store holds all tables behind one mutex.
type Store struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]model.Room
	members  map[uuid.UUID][]uuid.UUID
	memories map[uuid.UUID]model.MemoryItem
	users    map[string]model.User
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rooms:    make(map[uuid.UUID]model.Room),
		members:  make(map[uuid.UUID][]uuid.UUID),
		memories: make(map[uuid.UUID]model.MemoryItem),
		users:    make(map[string]model.User),
	}
}

// Rooms returns the store's RoomRepository view.
func (s *Store) Rooms() *RoomRepo { return &RoomRepo{s: s} }

// Memories returns the store's MemoryRepository view.
func (s *Store) Memories() *MemoryRepo { return &MemoryRepo{s: s} }

// Users returns the store's UserRepository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// RoomRepo is the in-memory RoomRepository.
type RoomRepo struct{ s *Store }

func (r *RoomRepo) Create(_ context.Context, room *model.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[room.ID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *room
	cp.AllowList = nil
	r.s.rooms[room.ID] = cp
	r.s.members[room.ID] = append([]uuid.UUID(nil), room.AllowList...)
	return nil
}

func (r *RoomRepo) Get(_ context.Context, id uuid.UUID) (*model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	room.AllowList = append([]uuid.UUID(nil), r.s.members[id]...)
	return &room, nil
}

func (r *RoomRepo) GetByShareToken(_ context.Context, token string) (*model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, room := range r.s.rooms {
		if room.ShareToken == token && token != "" {
			room.AllowList = append([]uuid.UUID(nil), r.s.members[id]...)
			return &room, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *RoomRepo) Update(_ context.Context, room *model.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[room.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *room
	cp.AllowList = nil
	r.s.rooms[room.ID] = cp
	r.s.members[room.ID] = append([]uuid.UUID(nil), room.AllowList...)
	return nil
}

func (r *RoomRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.rooms, id)
	delete(r.s.members, id)
	for mid, m := range r.s.memories {
		if m.RoomID == id {
			delete(r.s.memories, mid)
		}
	}
	return nil
}

func (r *RoomRepo) ListForPrincipal(_ context.Context, principal uuid.UUID) ([]model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Room
	for id, room := range r.s.rooms {
		ok := room.Owner == principal
		for _, p := range r.s.members[id] {
			if p == principal {
				ok = true
			}
		}
		if ok {
			room.AllowList = append([]uuid.UUID(nil), r.s.members[id]...)
			out = append(out, room)
		}
	}
	sortRooms(out)
	return out, nil
}

func (r *RoomRepo) ListPublic(_ context.Context) ([]model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Room
	for id, room := range r.s.rooms {
		if room.Visibility == model.VisibilityPublic {
			room.AllowList = append([]uuid.UUID(nil), r.s.members[id]...)
			out = append(out, room)
		}
	}
	sortRooms(out)
	return out, nil
}

func sortRooms(rooms []model.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
}

// MemoryRepo is the in-memory MemoryRepository.
type MemoryRepo struct{ s *Store }

func (r *MemoryRepo) Create(_ context.Context, m *model.MemoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.memories[m.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.s.memories[m.ID] = *m
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id uuid.UUID) (*model.MemoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.memories[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &m, nil
}

func (r *MemoryRepo) ListByRoom(_ context.Context, roomID uuid.UUID) ([]model.MemoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.MemoryItem
	for _, m := range r.s.memories {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Hide(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memories[id]
	if !ok {
		return errs.ErrNotFound
	}
	if m.HiddenAt == nil {
		m.HiddenAt = &at
		r.s.memories[id] = m
	}
	return nil
}

func (r *MemoryRepo) Purge(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.memories[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.memories, id)
	return nil
}

// UserRepo is the in-memory UserRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.Username]; ok {
		return errs.ErrAlreadyExists
	}
	r.s.users[u.Username] = *u
	return nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}
