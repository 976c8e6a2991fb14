// Package model defines domain entities used by the engine, backend client and server.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/errs"
)

// Visibility controls who may view a room's contents.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility value.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// MemoryType classifies a memory's payload.
type MemoryType string

const (
	MemoryPhoto MemoryType = "photo"
	MemoryNote  MemoryType = "note"
	MemoryAudio MemoryType = "audio"
	MemoryVideo MemoryType = "video"
	MemoryMusic MemoryType = "music"
)

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryPhoto, MemoryNote, MemoryAudio, MemoryVideo, MemoryMusic:
		return true
	}
	return false
}

// CapsuleMode selects which unlock mode of a capsule is authoritative.
type CapsuleMode string

const (
	ModeDuration  CapsuleMode = "duration"
	ModeFixedDate CapsuleMode = "fixed_date"
)

// CapsuleDuration is the countdown triple for duration-mode capsules.
type CapsuleDuration struct {
	Days    int
	Hours   int
	Minutes int
}

// AsDuration converts the triple into a time.Duration.
func (d CapsuleDuration) AsDuration() time.Duration {
	return time.Duration(d.Days)*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute
}

// CapsuleConfig seals a room until its unlock instant. Exactly one unlock
// mode is authoritative; the derived unlock instant is computed on demand
// and never stored alongside the config.
//
// Construct via NewDurationCapsule/NewFixedDateCapsule so that invalid
// configs are unrepresentable past this package.
type CapsuleConfig struct {
	Mode          CapsuleMode
	Duration      CapsuleDuration
	FixedUnlockAt time.Time
}

// NewDurationCapsule builds a duration-mode capsule. Negative fields are
// rejected here, never at read time.
func NewDurationCapsule(days, hours, minutes int) (CapsuleConfig, error) {
	if days < 0 || hours < 0 || minutes < 0 {
		return CapsuleConfig{}, fmt.Errorf("%w: negative capsule duration", errs.ErrValidation)
	}
	return CapsuleConfig{
		Mode:     ModeDuration,
		Duration: CapsuleDuration{Days: days, Hours: hours, Minutes: minutes},
	}, nil
}

// NewFixedDateCapsule builds a fixed-date capsule. The unlock instant must
// not precede the reference time (room creation time, or "now" when the
// capsule is attached by an edit).
func NewFixedDateCapsule(unlockAt, reference time.Time) (CapsuleConfig, error) {
	if unlockAt.IsZero() {
		return CapsuleConfig{}, fmt.Errorf("%w: missing fixed unlock date", errs.ErrValidation)
	}
	if unlockAt.Before(reference) {
		return CapsuleConfig{}, fmt.Errorf("%w: fixed unlock date in the past", errs.ErrValidation)
	}
	return CapsuleConfig{Mode: ModeFixedDate, FixedUnlockAt: unlockAt}, nil
}

// Validate re-checks a config that crossed a serialization boundary.
func (c CapsuleConfig) Validate(reference time.Time) error {
	switch c.Mode {
	case ModeDuration:
		if c.Duration.Days < 0 || c.Duration.Hours < 0 || c.Duration.Minutes < 0 {
			return fmt.Errorf("%w: negative capsule duration", errs.ErrValidation)
		}
	case ModeFixedDate:
		if c.FixedUnlockAt.IsZero() {
			return fmt.Errorf("%w: missing fixed unlock date", errs.ErrValidation)
		}
		if c.FixedUnlockAt.Before(reference) {
			return fmt.Errorf("%w: fixed unlock date in the past", errs.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown capsule mode %q", errs.ErrValidation, c.Mode)
	}
	return nil
}

// Room is a shared container for memories, optionally sealed by a capsule.
// The backend is the system of record; the engine holds reconciled copies.
type Room struct {
	ID              uuid.UUID  // backend-assigned
	Name            string     // non-empty
	Owner           uuid.UUID  // creating principal, never nil for an owned room
	Visibility      Visibility
	AllowList       []uuid.UUID    // additional principals allowed on private rooms
	Capsule         *CapsuleConfig // nil means the room is never locked
	CreatedAt       time.Time      // set once at creation, immutable
	BackgroundTrack string         // optional atmosphere preset, no ownership semantics
	ShareToken      string         // link token; grants discovery, never authorization
}

// RoomSpec is a client intent to create a room. ProvisionalID is a
// locally-generated id pending server confirmation; the backend-assigned
// id on the returned record is authoritative.
type RoomSpec struct {
	ProvisionalID   uuid.UUID
	Name            string
	Visibility      Visibility
	AllowList       []uuid.UUID
	Capsule         *CapsuleConfig
	BackgroundTrack string
}

// Validate rejects a spec before any network call. reference is the clock
// reading the fixed unlock date is checked against.
func (s RoomSpec) Validate(reference time.Time) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty room name", errs.ErrValidation)
	}
	if !s.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", errs.ErrValidation, s.Visibility)
	}
	if s.Capsule != nil {
		if err := s.Capsule.Validate(reference); err != nil {
			return err
		}
	}
	return nil
}

// RoomPatch is a partial-field room update. Nil pointers leave the field
// untouched both server-side and locally. RemoveCapsule and Capsule are
// mutually exclusive.
type RoomPatch struct {
	Name            *string
	Visibility      *Visibility
	AllowList       *[]uuid.UUID
	BackgroundTrack *string
	Capsule         *CapsuleConfig
	RemoveCapsule   bool
}

// Validate rejects an invalid patch before any network call.
func (p RoomPatch) Validate(reference time.Time) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: empty room name", errs.ErrValidation)
	}
	if p.Visibility != nil && !p.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", errs.ErrValidation, *p.Visibility)
	}
	if p.Capsule != nil && p.RemoveCapsule {
		return fmt.Errorf("%w: capsule set and removed in one patch", errs.ErrValidation)
	}
	if p.Capsule != nil {
		if err := p.Capsule.Validate(reference); err != nil {
			return err
		}
	}
	return nil
}

// MemoryItem is a single memory inside a room. RoomID is a back-reference,
// not ownership: rooms do not hold loaded memory collections, the engine
// queries memories by room id on demand.
type MemoryItem struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	Type      MemoryType
	Title     string
	Content   string // opaque payload reference or inline small payload
	CreatedAt time.Time
	HiddenAt  *time.Time // set on soft delete; purge graduates it to a hard delete
}

// Hidden reports whether the memory has been soft-deleted.
func (m *MemoryItem) Hidden() bool { return m.HiddenAt != nil }

// MemorySpec is a client intent to add a memory to a room.
type MemorySpec struct {
	RoomID  uuid.UUID
	Type    MemoryType
	Title   string
	Content string
}

// Validate rejects a spec before any network call.
func (s MemorySpec) Validate() error {
	if s.RoomID == uuid.Nil {
		return fmt.Errorf("%w: empty room id", errs.ErrValidation)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: unknown memory type %q", errs.ErrValidation, s.Type)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: empty memory title", errs.ErrValidation)
	}
	return nil
}

// LockState is derived from CapsuleConfig and the clock on every read.
// It is never cached across a process restart.
type LockState struct {
	Locked    bool
	UnlockAt  time.Time     // zero when the room has no capsule
	Remaining time.Duration // max(0, unlockAt-now)
}
