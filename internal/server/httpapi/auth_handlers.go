package httpapi

import (
	"net/http"

	"github.com/threelizards/safe-variables/internal/server/models"
	"github.com/threelizards/safe-variables/internal/server/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	AvatarURL string `json:"avatar_url"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	Website   string `json:"website"`
	Linkedin  string `json:"linkedin"`
	Github    string `json:"github"`
	Timezone  string `json:"timezone"`
}

type sessionResponse struct {
	User *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	sess, err := s.auth.Register(r.Context(), services.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	}, clientInfo(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusCreated, sessionResponse{User: sess.User})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, sessionResponse{User: sess.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	s.auth.Logout(r.Context(), user.ID, clientInfo(r))

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{User: userFrom(r.Context())})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := userFrom(r.Context())
	updated, err := s.auth.UpdateProfile(r.Context(), user.ID, services.ProfileUpdate{
		Name:      req.Name,
		Bio:       req.Bio,
		Company:   req.Company,
		Position:  req.Position,
		AvatarURL: req.AvatarURL,
		Phone:     req.Phone,
		Location:  req.Location,
		Website:   req.Website,
		Linkedin:  req.Linkedin,
		Github:    req.Github,
		Timezone:  req.Timezone,
	}, clientInfo(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: updated})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
