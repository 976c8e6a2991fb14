// Package repository defines storage interfaces for the backend server.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/model"
)

// RoomRepository stores rooms, the system of record for the sync engine.
type RoomRepository interface {
	// Create inserts a new room with its allow-list.
	Create(ctx context.Context, room *model.Room) error

	// Get returns a room by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Room, error)

	// GetByShareToken resolves a share-link token to its room.
	GetByShareToken(ctx context.Context, token string) (*model.Room, error)

	// Update replaces the mutable fields of a room, allow-list included.
	Update(ctx context.Context, room *model.Room) error

	// Delete removes a room and its memories permanently.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListForPrincipal returns rooms owned by or shared with the principal.
	ListForPrincipal(ctx context.Context, principal uuid.UUID) ([]model.Room, error)

	// ListPublic returns the discover feed of public rooms.
	ListPublic(ctx context.Context) ([]model.Room, error)
}

// MemoryRepository stores memory items.
type MemoryRepository interface {
	// Create inserts a new memory.
	Create(ctx context.Context, m *model.MemoryItem) error

	// Get returns a memory by id.
	Get(ctx context.Context, id uuid.UUID) (*model.MemoryItem, error)

	// ListByRoom returns all memories of a room, hidden ones included.
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.MemoryItem, error)

	// Hide stamps the memory's hidden-at time (soft delete).
	Hide(ctx context.Context, id uuid.UUID, at time.Time) error

	// Purge deletes a memory permanently.
	Purge(ctx context.Context, id uuid.UUID) error
}
