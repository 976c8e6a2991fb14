package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/internal/api"
	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.log.Warn("encode response", zap.Error(err))
		}
	}
}

// writeErr maps sentinel errors to HTTP statuses. The body carries the
// reason verbatim so clients can surface it.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal"
	switch {
	case errors.Is(err, errs.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrNotAuthenticated):
		status, msg = http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, errs.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, errs.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "too many attempts"
	case errors.Is(err, errs.ErrRejected):
		status = http.StatusConflict
		var rej *errs.RejectedError
		if errors.As(err, &rej) {
			msg = rej.Reason
		} else {
			msg = err.Error()
		}
	default:
		s.log.Error("internal error", zap.Error(err))
	}
	s.writeJSON(w, status, api.Error{Error: msg})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", errs.ErrValidation)
	}
	return nil
}

// clientIP returns the RealIP-normalized address without the ephemeral port,
// so rate-limit counters accumulate per host rather than per connection.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func principal(r *http.Request) uuid.UUID {
	id, _ := UserIDFromCtx(r.Context())
	return id
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

// --- auth ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := decode(r, &in); err != nil {
		s.writeErr(w, err)
		return
	}
	id, err := s.auth.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"user_id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := decode(r, &in); err != nil {
		s.writeErr(w, err)
		return
	}
	tokens, user, err := s.auth.LoginWithIP(r.Context(), in.Username, in.Password, clientIP(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: tokens.AccessToken,
		ExpiresAt:   tokens.ExpiresAt,
		UserID:      user.ID.String(),
	})
}

// --- rooms ---

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var in api.RoomRequest
	if err := decode(r, &in); err != nil {
		s.writeErr(w, err)
		return
	}
	spec, err := roomSpecFromRequest(in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	room, err := s.rooms.Create(r.Context(), principal(r), spec)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ToRoom(room))
}

func roomSpecFromRequest(in api.RoomRequest) (model.RoomSpec, error) {
	spec := model.RoomSpec{
		Name:            in.Name,
		Visibility:      model.Visibility(in.Visibility),
		Capsule:         api.FromCapsule(in.Capsule),
		BackgroundTrack: in.BackgroundTrack,
	}
	if in.ID != "" {
		id, err := uuid.FromString(in.ID)
		if err != nil {
			return model.RoomSpec{}, errs.Rejected("invalid provisional id")
		}
		spec.ProvisionalID = id
	}
	for _, raw := range in.AllowList {
		p, err := uuid.FromString(raw)
		if err != nil {
			return model.RoomSpec{}, errs.Rejected("invalid allow-list entry")
		}
		spec.AllowList = append(spec.AllowList, p)
	}
	return spec, nil
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roomID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	room, err := s.rooms.Get(r.Context(), principal(r), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ToRoom(room))
}

func (s *Server) handlePatchRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roomID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var in api.RoomPatch
	if err := decode(r, &in); err != nil {
		s.writeErr(w, err)
		return
	}
	patch, err := roomPatchFromRequest(in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	room, err := s.rooms.Patch(r.Context(), principal(r), id, patch)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ToRoom(room))
}

func roomPatchFromRequest(in api.RoomPatch) (model.RoomPatch, error) {
	patch := model.RoomPatch{
		Name:            in.Name,
		BackgroundTrack: in.BackgroundTrack,
		Capsule:         api.FromCapsule(in.Capsule),
		RemoveCapsule:   in.RemoveCapsule,
	}
	if in.Visibility != nil {
		v := model.Visibility(*in.Visibility)
		patch.Visibility = &v
	}
	if in.AllowList != nil {
		ids := make([]uuid.UUID, 0, len(*in.AllowList))
		for _, raw := range *in.AllowList {
			p, err := uuid.FromString(raw)
			if err != nil {
				return model.RoomPatch{}, errs.Rejected("invalid allow-list entry")
			}
			ids = append(ids, p)
		}
		patch.AllowList = &ids
	}
	return patch, nil
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roomID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.rooms.Delete(r.Context(), principal(r), id); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.List(r.Context(), principal(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, roomsToWire(rooms))
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.Discover(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, roomsToWire(rooms))
}

func roomsToWire(rooms []model.Room) []api.Room {
	out := make([]api.Room, 0, len(rooms))
	for i := range rooms {
		out = append(out, api.ToRoom(&rooms[i]))
	}
	return out
}

func (s *Server) handleResolveShareLink(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	room, err := s.rooms.ResolveShareLink(r.Context(), principal(r), token)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ToRoom(room))
}

// --- memories ---

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathID(r, "roomID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var in api.MemoryRequest
	if err := decode(r, &in); err != nil {
		s.writeErr(w, err)
		return
	}
	m, err := s.memories.Add(r.Context(), principal(r), model.MemorySpec{
		RoomID:  roomID,
		Type:    model.MemoryType(in.Type),
		Title:   in.Title,
		Content: in.Content,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ToMemory(m))
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathID(r, "roomID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	items, err := s.memories.List(r.Context(), principal(r), roomID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]api.Memory, 0, len(items))
	for i := range items {
		out = append(out, api.ToMemory(&items[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHideMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "memoryID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.memories.Hide(r.Context(), principal(r), id); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handlePurgeMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "memoryID")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.memories.Purge(r.Context(), principal(r), id); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
