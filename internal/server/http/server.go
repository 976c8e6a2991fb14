// Package httpserver exposes the backend over a JSON REST API.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/internal/service"
)

// Server bundles the services behind the REST routes.
type Server struct {
	auth     service.AuthService
	rooms    service.RoomService
	memories service.MemoryService
	signKey  []byte
	log      *zap.Logger
}

// New constructs a Server.
func New(auth service.AuthService, rooms service.RoomService, memories service.MemoryService, signKey []byte, log *zap.Logger) *Server {
	return &Server{auth: auth, rooms: rooms, memories: memories, signKey: signKey, log: log}
}

// Router builds the route tree. Auth endpoints are public; everything else
// requires a bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(Auth(s.signKey))

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", s.handleCreateRoom)
				r.Get("/", s.handleListRooms)
				r.Get("/discover", s.handleDiscover)
				r.Route("/{roomID}", func(r chi.Router) {
					r.Get("/", s.handleGetRoom)
					r.Patch("/", s.handlePatchRoom)
					r.Delete("/", s.handleDeleteRoom)
					r.Post("/memories", s.handleCreateMemory)
					r.Get("/memories", s.handleListMemories)
				})
			})
			r.Get("/links/{token}", s.handleResolveShareLink)
			r.Delete("/memories/{memoryID}", s.handleHideMemory)
			r.Delete("/memories/{memoryID}/purge", s.handlePurgeMemory)
		})
	})
	return r
}
