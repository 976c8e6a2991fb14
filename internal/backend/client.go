package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/api"
	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
)

// Client is the HTTP implementation of Backend. It requests a fresh bearer
// token from its CredentialSource per call and never caches one itself.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialSource
}

// NewClient constructs a Client for the given base URL. hc may be nil, in
// which case a client with a 15s timeout is used.
func NewClient(baseURL string, creds CredentialSource, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, http: hc, creds: creds}
}

var _ Backend = (*Client)(nil)

// do performs one authenticated round trip. in is marshaled as the JSON
// body when non-nil; out is unmarshaled from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	tok, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNotAuthenticated, err)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", errs.ErrNetwork, err)
		}
		return nil
	}

	var apiErr api.Error
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	reason := apiErr.Error
	if reason == "" {
		reason = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", errs.ErrNotAuthenticated, reason)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", errs.ErrNotFound, reason)
	default:
		return errs.Rejected(reason)
	}
}

// CreateRoom sends the room spec and returns the backend-assigned record.
func (c *Client) CreateRoom(ctx context.Context, spec model.RoomSpec) (*model.Room, error) {
	req := api.RoomRequest{
		Name:            spec.Name,
		Visibility:      string(spec.Visibility),
		Capsule:         api.ToCapsule(spec.Capsule),
		BackgroundTrack: spec.BackgroundTrack,
	}
	if spec.ProvisionalID != uuid.Nil {
		req.ID = spec.ProvisionalID.String()
	}
	for _, p := range spec.AllowList {
		req.AllowList = append(req.AllowList, p.String())
	}
	var out api.Room
	if err := c.do(ctx, http.MethodPost, "/api/rooms", req, &out); err != nil {
		return nil, err
	}
	return api.FromRoom(out)
}

// GetRoom fetches a single room by id.
func (c *Client) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var out api.Room
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return api.FromRoom(out)
}

// PatchRoom applies a partial update.
func (c *Client) PatchRoom(ctx context.Context, id uuid.UUID, patch model.RoomPatch) (*model.Room, error) {
	req := api.RoomPatch{
		Name:            patch.Name,
		BackgroundTrack: patch.BackgroundTrack,
		Capsule:         api.ToCapsule(patch.Capsule),
		RemoveCapsule:   patch.RemoveCapsule,
	}
	if patch.Visibility != nil {
		v := string(*patch.Visibility)
		req.Visibility = &v
	}
	if patch.AllowList != nil {
		ids := make([]string, 0, len(*patch.AllowList))
		for _, p := range *patch.AllowList {
			ids = append(ids, p.String())
		}
		req.AllowList = &ids
	}
	var out api.Room
	if err := c.do(ctx, http.MethodPatch, "/api/rooms/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return api.FromRoom(out)
}

// DeleteRoom deletes a room permanently.
func (c *Client) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/rooms/"+id.String(), nil, nil)
}

// ListRooms returns the caller's rooms.
func (c *Client) ListRooms(ctx context.Context) ([]model.Room, error) {
	return c.listRooms(ctx, "/api/rooms")
}

// ListDiscoverable returns the public discover feed.
func (c *Client) ListDiscoverable(ctx context.Context) ([]model.Room, error) {
	return c.listRooms(ctx, "/api/rooms/discover")
}

func (c *Client) listRooms(ctx context.Context, path string) ([]model.Room, error) {
	var out []api.Room
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	rooms := make([]model.Room, 0, len(out))
	for _, r := range out {
		m, err := api.FromRoom(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrNetwork, err)
		}
		rooms = append(rooms, *m)
	}
	return rooms, nil
}

// ResolveShareLink resolves a share token to its room.
func (c *Client) ResolveShareLink(ctx context.Context, token string) (*model.Room, error) {
	var out api.Room
	if err := c.do(ctx, http.MethodGet, "/api/links/"+url.PathEscape(token), nil, &out); err != nil {
		return nil, err
	}
	return api.FromRoom(out)
}

// CreateMemory adds a memory to a room.
func (c *Client) CreateMemory(ctx context.Context, spec model.MemorySpec) (*model.MemoryItem, error) {
	req := api.MemoryRequest{Type: string(spec.Type), Title: spec.Title, Content: spec.Content}
	var out api.Memory
	path := "/api/rooms/" + spec.RoomID.String() + "/memories"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return api.FromMemory(out)
}

// ListMemories returns all memories of a room, hidden ones included.
func (c *Client) ListMemories(ctx context.Context, roomID uuid.UUID) ([]model.MemoryItem, error) {
	var out []api.Memory
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID.String()+"/memories", nil, &out); err != nil {
		return nil, err
	}
	items := make([]model.MemoryItem, 0, len(out))
	for _, m := range out {
		item, err := api.FromMemory(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrNetwork, err)
		}
		items = append(items, *item)
	}
	return items, nil
}

// HideMemory soft-deletes a memory.
func (c *Client) HideMemory(ctx context.Context, memoryID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/memories/"+memoryID.String(), nil, nil)
}

// PurgeMemory permanently deletes a memory.
func (c *Client) PurgeMemory(ctx context.Context, memoryID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/memories/"+memoryID.String()+"/purge", nil, nil)
}
