package api

import (
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/model"
)

// --- helpers ---

func parseID(s string) (u.UUID, error) {
	var id u.UUID
	if err := id.UnmarshalText([]byte(s)); err != nil {
		return u.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func idStrings(ids []u.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseIDs(ss []string) ([]u.UUID, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]u.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// --- Capsule ---

// ToCapsule wraps a domain config for the wire.
func ToCapsule(c *model.CapsuleConfig) *Capsule {
	if c == nil {
		return nil
	}
	out := &Capsule{Mode: string(c.Mode)}
	switch c.Mode {
	case model.ModeDuration:
		out.Days, out.Hours, out.Minutes = c.Duration.Days, c.Duration.Hours, c.Duration.Minutes
	case model.ModeFixedDate:
		t := c.FixedUnlockAt
		out.FixedUnlockAt = &t
	}
	return out
}

// FromCapsule unwraps a wire capsule into a domain config without
// validation; callers validate against their own reference time.
func FromCapsule(c *Capsule) *model.CapsuleConfig {
	if c == nil {
		return nil
	}
	cfg := &model.CapsuleConfig{Mode: model.CapsuleMode(c.Mode)}
	switch cfg.Mode {
	case model.ModeDuration:
		cfg.Duration = model.CapsuleDuration{Days: c.Days, Hours: c.Hours, Minutes: c.Minutes}
	case model.ModeFixedDate:
		if c.FixedUnlockAt != nil {
			cfg.FixedUnlockAt = *c.FixedUnlockAt
		}
	}
	return cfg
}

// --- Room ---

// ToRoom converts a domain room for the wire.
func ToRoom(r *model.Room) Room {
	return Room{
		ID:              r.ID.String(),
		Name:            r.Name,
		Owner:           r.Owner.String(),
		Visibility:      string(r.Visibility),
		AllowList:       idStrings(r.AllowList),
		Capsule:         ToCapsule(r.Capsule),
		CreatedAt:       r.CreatedAt,
		BackgroundTrack: r.BackgroundTrack,
		ShareToken:      r.ShareToken,
	}
}

// FromRoom converts a wire room into the domain struct.
func FromRoom(in Room) (*model.Room, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}
	owner, err := parseID(in.Owner)
	if err != nil {
		return nil, err
	}
	allow, err := parseIDs(in.AllowList)
	if err != nil {
		return nil, err
	}
	return &model.Room{
		ID:              id,
		Name:            in.Name,
		Owner:           owner,
		Visibility:      model.Visibility(in.Visibility),
		AllowList:       allow,
		Capsule:         FromCapsule(in.Capsule),
		CreatedAt:       in.CreatedAt,
		BackgroundTrack: in.BackgroundTrack,
		ShareToken:      in.ShareToken,
	}, nil
}

// --- Memory ---

// ToMemory converts a domain memory for the wire.
func ToMemory(m *model.MemoryItem) Memory {
	out := Memory{
		ID:        m.ID.String(),
		RoomID:    m.RoomID.String(),
		Type:      string(m.Type),
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.HiddenAt != nil {
		t := *m.HiddenAt
		out.HiddenAt = &t
	}
	return out
}

// FromMemory converts a wire memory into the domain struct.
func FromMemory(in Memory) (*model.MemoryItem, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}
	roomID, err := parseID(in.RoomID)
	if err != nil {
		return nil, err
	}
	var hidden *time.Time
	if in.HiddenAt != nil {
		t := *in.HiddenAt
		hidden = &t
	}
	return &model.MemoryItem{
		ID:        id,
		RoomID:    roomID,
		Type:      model.MemoryType(in.Type),
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: in.CreatedAt,
		HiddenAt:  hidden,
	}, nil
}
