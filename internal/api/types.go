// Package api defines the JSON wire types shared by the HTTP client and server.
package api

import "time"

// Credentials is the register/login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
}

// Capsule mirrors model.CapsuleConfig on the wire.
type Capsule struct {
	Mode          string     `json:"mode"`
	Days          int        `json:"days,omitempty"`
	Hours         int        `json:"hours,omitempty"`
	Minutes       int        `json:"minutes,omitempty"`
	FixedUnlockAt *time.Time `json:"fixed_unlock_at,omitempty"`
}

// RoomRequest creates a room. ID is the client's provisional id; the
// server honors it when valid and unused, otherwise assigns its own.
type RoomRequest struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	Visibility      string   `json:"visibility"`
	AllowList       []string `json:"allow_list,omitempty"`
	Capsule         *Capsule `json:"capsule,omitempty"`
	BackgroundTrack string   `json:"background_track,omitempty"`
}

// RoomPatch updates a room. Absent (null) fields are left untouched.
type RoomPatch struct {
	Name            *string   `json:"name,omitempty"`
	Visibility      *string   `json:"visibility,omitempty"`
	AllowList       *[]string `json:"allow_list,omitempty"`
	BackgroundTrack *string   `json:"background_track,omitempty"`
	Capsule         *Capsule  `json:"capsule,omitempty"`
	RemoveCapsule   bool      `json:"remove_capsule,omitempty"`
}

// Room is a room as returned by the backend.
type Room struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Owner           string    `json:"owner"`
	Visibility      string    `json:"visibility"`
	AllowList       []string  `json:"allow_list,omitempty"`
	Capsule         *Capsule  `json:"capsule,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	BackgroundTrack string    `json:"background_track,omitempty"`
	ShareToken      string    `json:"share_token,omitempty"`
}

// MemoryRequest adds a memory to a room.
type MemoryRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// Memory is a memory item as returned by the backend. Hidden items are
// included: filtering them from visible results is the engine's job.
type Memory struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	HiddenAt  *time.Time `json:"hidden_at,omitempty"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}
