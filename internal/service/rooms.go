package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/keepsake-app/keepsake/internal/crypto"
	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/policy"
	"github.com/keepsake-app/keepsake/internal/repository"
)

// RoomService defines room lifecycle operations as the system of record.
type RoomService interface {
	// Create persists a new room owned by the principal.
	Create(ctx context.Context, owner uuid.UUID, spec model.RoomSpec) (*model.Room, error)
	// Get returns a room the principal may view.
	Get(ctx context.Context, principal, id uuid.UUID) (*model.Room, error)
	// Patch applies a partial update; owner only.
	Patch(ctx context.Context, principal, id uuid.UUID, patch model.RoomPatch) (*model.Room, error)
	// Delete removes a room and its memories; owner only.
	Delete(ctx context.Context, principal, id uuid.UUID) error
	// List returns rooms owned by or shared with the principal.
	List(ctx context.Context, principal uuid.UUID) ([]model.Room, error)
	// Discover returns the public feed.
	Discover(ctx context.Context) ([]model.Room, error)
	// ResolveShareLink resolves a token for a principal allowed to view the room.
	ResolveShareLink(ctx context.Context, principal uuid.UUID, token string) (*model.Room, error)
}

type RoomServiceImpl struct {
	rooms repository.RoomRepository
}

// NewRoomService constructs RoomService.
func NewRoomService(rooms repository.RoomRepository) *RoomServiceImpl {
	return &RoomServiceImpl{rooms: rooms}
}

// Create validates the spec, honors the client's provisional id and stamps
// server-side creation time plus a fresh share token.
func (s *RoomServiceImpl) Create(ctx context.Context, owner uuid.UUID, spec model.RoomSpec) (*model.Room, error) {
	now := time.Now().UTC()
	if owner == uuid.Nil {
		return nil, errs.ErrNotAuthenticated
	}
	if err := spec.Validate(now); err != nil {
		return nil, err
	}
	id := spec.ProvisionalID
	if id == uuid.Nil {
		var err error
		if id, err = uuid.NewV4(); err != nil {
			return nil, err
		}
	}
	token, err := pkgcrypto.RandToken(16)
	if err != nil {
		return nil, err
	}
	room := &model.Room{
		ID:              id,
		Name:            spec.Name,
		Owner:           owner,
		Visibility:      spec.Visibility,
		AllowList:       spec.AllowList,
		Capsule:         spec.Capsule,
		CreatedAt:       now,
		BackgroundTrack: spec.BackgroundTrack,
		ShareToken:      token,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Get returns the room if the principal may view it.
func (s *RoomServiceImpl) Get(ctx context.Context, principal, id uuid.UUID) (*model.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}
	return room, nil
}

// Patch validates and applies a partial update. Only the owner may edit;
// a capsule attached by an edit is checked against the edit time, not the
// room's creation time.
func (s *RoomServiceImpl) Patch(ctx context.Context, principal, id uuid.UUID, patch model.RoomPatch) (*model.Room, error) {
	now := time.Now().UTC()
	if err := patch.Validate(now); err != nil {
		return nil, err
	}
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.Owner != principal {
		return nil, errs.Rejected("not the room owner")
	}
	applyPatch(room, patch)
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func applyPatch(room *model.Room, p model.RoomPatch) {
	if p.Name != nil {
		room.Name = *p.Name
	}
	if p.Visibility != nil {
		room.Visibility = *p.Visibility
	}
	if p.AllowList != nil {
		room.AllowList = *p.AllowList
	}
	if p.BackgroundTrack != nil {
		room.BackgroundTrack = *p.BackgroundTrack
	}
	if p.Capsule != nil {
		cp := *p.Capsule
		room.Capsule = &cp
	}
	if p.RemoveCapsule {
		room.Capsule = nil
	}
}

// Delete removes the room permanently; owner only.
func (s *RoomServiceImpl) Delete(ctx context.Context, principal, id uuid.UUID) error {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return err
	}
	if room.Owner != principal {
		return errs.Rejected("not the room owner")
	}
	return s.rooms.Delete(ctx, id)
}

// List returns every room the principal owns or is allow-listed on.
func (s *RoomServiceImpl) List(ctx context.Context, principal uuid.UUID) ([]model.Room, error) {
	if principal == uuid.Nil {
		return nil, errs.ErrNotAuthenticated
	}
	return s.rooms.ListForPrincipal(ctx, principal)
}

// Discover returns all public rooms.
func (s *RoomServiceImpl) Discover(ctx context.Context) ([]model.Room, error) {
	return s.rooms.ListPublic(ctx)
}

// ResolveShareLink maps a token back to its room. The token grants
// discovery only; the usual view policy still applies.
func (s *RoomServiceImpl) ResolveShareLink(ctx context.Context, principal uuid.UUID, token string) (*model.Room, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty share token", errs.ErrValidation)
	}
	room, err := s.rooms.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(principal, room) {
		return nil, errs.Rejected("access denied")
	}
	return room, nil
}
