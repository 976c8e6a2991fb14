package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/policy"
	"github.com/keepsake-app/keepsake/internal/repository"
)

// MemoryService defines memory operations inside rooms.
type MemoryService interface {
	// Add appends a memory to a room the principal may view.
	Add(ctx context.Context, principal uuid.UUID, spec model.MemorySpec) (*model.MemoryItem, error)
	// List returns a room's memories, hidden ones included; clients decide
	// what to surface.
	List(ctx context.Context, principal, roomID uuid.UUID) ([]model.MemoryItem, error)
	// Hide soft-deletes a memory; room owner only.
	Hide(ctx context.Context, principal, id uuid.UUID) error
	// Purge hard-deletes a previously hidden memory; room owner only.
	Purge(ctx context.Context, principal, id uuid.UUID) error
}

type MemoryServiceImpl struct {
	rooms    repository.RoomRepository
	memories repository.MemoryRepository
}

// NewMemoryService constructs MemoryService.
func NewMemoryService(rooms repository.RoomRepository, memories repository.MemoryRepository) *MemoryServiceImpl {
	return &MemoryServiceImpl{rooms: rooms, memories: memories}
}

// Add validates the spec and stores the memory. Sealed rooms accept new
// memories; sealing hides content, it does not freeze the room.
func (s *MemoryServiceImpl) Add(ctx context.Context, principal uuid.UUID, spec model.MemorySpec) (*model.MemoryItem, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	room, err := s.rooms.Get(ctx, spec.RoomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &model.MemoryItem{
		ID:        id,
		RoomID:    spec.RoomID,
		Type:      spec.Type,
		Title:     spec.Title,
		Content:   spec.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.memories.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns all memories of the room to any allowed viewer. Hidden items
// stay in the payload so syncing clients can drive retention.
func (s *MemoryServiceImpl) List(ctx context.Context, principal, roomID uuid.UUID) ([]model.MemoryItem, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}
	return s.memories.ListByRoom(ctx, roomID)
}

// Hide stamps the hidden-at time, starting the retention window.
func (s *MemoryServiceImpl) Hide(ctx context.Context, principal, id uuid.UUID) error {
	m, err := s.memories.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, principal, m.RoomID); err != nil {
		return err
	}
	return s.memories.Hide(ctx, id, time.Now().UTC())
}

// Purge removes a memory permanently. Only hidden memories may be purged.
func (s *MemoryServiceImpl) Purge(ctx context.Context, principal, id uuid.UUID) error {
	m, err := s.memories.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, principal, m.RoomID); err != nil {
		return err
	}
	if !m.Hidden() {
		return errs.Rejected("memory not hidden")
	}
	return s.memories.Purge(ctx, id)
}

func (s *MemoryServiceImpl) requireOwner(ctx context.Context, principal, roomID uuid.UUID) error {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Owner != principal {
		return errs.Rejected("not the room owner")
	}
	return nil
}
