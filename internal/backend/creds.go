package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/keepsake-app/keepsake/internal/clock"
	"github.com/keepsake-app/keepsake/internal/errs"
)

// StaticToken is a CredentialSource serving a fixed token. Intended for
// tests and short-lived tools; it performs no expiry checks.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: no token configured", errs.ErrNotAuthenticated)
	}
	return string(s), nil
}

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
}

// FileCredentials reads the token saved by login from the config dir and
// refuses to serve it past its expiry, so the engine never attaches a
// stale credential.
type FileCredentials struct {
	path  string
	clock clock.Clock

	mu sync.Mutex
}

// NewFileCredentials constructs a FileCredentials over the given token path.
func NewFileCredentials(path string, clk clock.Clock) *FileCredentials {
	return &FileCredentials{path: path, clock: clk}
}

// Token returns the stored access token, or ErrNotAuthenticated when the
// file is missing or the token has expired.
func (f *FileCredentials) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("%w: login required", errs.ErrNotAuthenticated)
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", fmt.Errorf("%w: corrupt token file", errs.ErrNotAuthenticated)
	}
	if tf.AccessToken == "" || !f.clock.Now().Before(tf.ExpiresAt) {
		return "", fmt.Errorf("%w: token expired, login required", errs.ErrNotAuthenticated)
	}
	return tf.AccessToken, nil
}

// Save persists a freshly issued token next to any previous one.
func (f *FileCredentials) Save(token string, expiresAt time.Time, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{AccessToken: token, ExpiresAt: expiresAt, UserID: userID}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0o600)
}

// UserID returns the principal id stored with the token, if any.
func (f *FileCredentials) UserID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	return tf.UserID, nil
}
