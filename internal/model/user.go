package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User is an account stored by the backend. Passwords are never stored in
// plaintext; only the Argon2id hash and its per-user salt are kept.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	CreatedAt time.Time
}

// Tokens is the result of a successful login.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}
