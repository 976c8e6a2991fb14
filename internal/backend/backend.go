// Package backend implements the HTTP client for the room/memory backend.
package backend

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/model"
)

// Backend is the collaborator owning rooms and memories. Every call is
// authenticated with a fresh bearer credential; success and failure are
// distinguishable as 2xx vs not.
type Backend interface {
	// CreateRoom persists a new room and returns the backend-assigned record.
	CreateRoom(ctx context.Context, spec model.RoomSpec) (*model.Room, error)
	// GetRoom fetches a single room by id.
	GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error)
	// PatchRoom applies a partial update and returns the updated record.
	PatchRoom(ctx context.Context, id uuid.UUID, patch model.RoomPatch) (*model.Room, error)
	// DeleteRoom deletes a room permanently.
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	// ListRooms returns rooms the caller owns or is allowed into.
	ListRooms(ctx context.Context) ([]model.Room, error)
	// ListDiscoverable returns the public discover feed. The backend may
	// over-fetch; callers re-filter through the access policy.
	ListDiscoverable(ctx context.Context) ([]model.Room, error)
	// ResolveShareLink resolves a share token to its room.
	ResolveShareLink(ctx context.Context, token string) (*model.Room, error)

	// CreateMemory adds a memory to a room.
	CreateMemory(ctx context.Context, spec model.MemorySpec) (*model.MemoryItem, error)
	// ListMemories returns all memories of a room, hidden ones included.
	ListMemories(ctx context.Context, roomID uuid.UUID) ([]model.MemoryItem, error)
	// HideMemory soft-deletes a memory by stamping its hidden-at time.
	HideMemory(ctx context.Context, memoryID uuid.UUID) error
	// PurgeMemory permanently deletes a memory.
	PurgeMemory(ctx context.Context, memoryID uuid.UUID) error
}

// CredentialSource supplies a bearer token for a single call. Implementations
// must never hand out a token past its lifetime.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}
