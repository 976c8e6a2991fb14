package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/keepsake-app/keepsake/internal/api"
	"github.com/keepsake-app/keepsake/internal/errs"
)

// AuthClient performs the unauthenticated register/login calls. Token
// refresh is the auth collaborator's job, not the engine's: the engine
// only ever consumes tokens through a CredentialSource.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

// NewAuthClient constructs an AuthClient for the given base URL.
func NewAuthClient(baseURL string, hc *http.Client) *AuthClient {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &AuthClient{baseURL: baseURL, http: hc}
}

func (a *AuthClient) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var apiErr api.Error
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	reason := apiErr.Error
	if reason == "" {
		reason = resp.Status
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", errs.ErrNotAuthenticated, reason)
	}
	return errs.Rejected(reason)
}

// Register creates an account and returns the new user id.
func (a *AuthClient) Register(ctx context.Context, username, password string) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	err := a.post(ctx, "/api/auth/register", api.Credentials{Username: username, Password: password}, &out)
	return out.UserID, err
}

// Login authenticates and returns a fresh access token.
func (a *AuthClient) Login(ctx context.Context, username, password string) (api.TokenResponse, error) {
	var out api.TokenResponse
	err := a.post(ctx, "/api/auth/login", api.Credentials{Username: username, Password: password}, &out)
	return out, err
}
