// Package httpapi exposes the vault over HTTP/JSON. Handlers stay
// thin: they decode input, call a service, and map errors to status
// codes. All business rules live in the services.
package httpapi

import (
	"net/http"
	"time"

	"github.com/threelizards/safe-variables/internal/logging"
	"github.com/threelizards/safe-variables/internal/server/services"
)

// sessionCookie is the cookie carrying the session token. A Bearer
// token in the Authorization header is accepted as an alternative for
// non-browser clients.
const sessionCookie = "auth-token"

type Server struct {
	logger          logging.Logger
	auth            *services.AuthService
	vault           *services.VaultService
	sessionLifetime time.Duration
}

func NewServer(auth *services.AuthService, vault *services.VaultService,
	logger logging.Logger, sessionLifetime time.Duration) *Server {
	return &Server{
		logger:          logger,
		auth:            auth,
		vault:           vault,
		sessionLifetime: sessionLifetime,
	}
}

// Handler builds the route table and wraps it with the recovery and
// request-logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("POST /api/auth/logout", s.requireAuth(s.handleLogout))
	mux.Handle("GET /api/auth/me", s.requireAuth(s.handleMe))
	mux.Handle("PUT /api/auth/profile", s.requireAuth(s.handleUpdateProfile))

	mux.Handle("GET /api/projects", s.requireAuth(s.handleListProjects))
	mux.Handle("POST /api/projects", s.requireAuth(s.handleCreateProject))
	mux.Handle("GET /api/projects/{id}", s.requireAuth(s.handleGetProject))
	mux.Handle("PUT /api/projects/{id}", s.requireAuth(s.handleUpdateProject))
	mux.Handle("DELETE /api/projects/{id}", s.requireAuth(s.handleDeleteProject))
	mux.Handle("POST /api/projects/{id}/variables", s.requireAuth(s.handleCreateVariable))

	mux.Handle("PUT /api/variables/{id}", s.requireAuth(s.handleUpdateVariable))
	mux.Handle("DELETE /api/variables/{id}", s.requireAuth(s.handleDeleteVariable))
	mux.Handle("POST /api/variables/{id}/reveal", s.requireAuth(s.handleRevealVariable))

	var h http.Handler = mux
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
