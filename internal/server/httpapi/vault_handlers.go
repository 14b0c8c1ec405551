package httpapi

import (
	"net/http"

	"github.com/threelizards/safe-variables/internal/server/models"
	"github.com/threelizards/safe-variables/internal/server/services"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type variableRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	IsSecret    bool   `json:"is_secret"`
}

type projectDetailResponse struct {
	Project   *models.Project    `json:"project"`
	Variables []*models.Variable `json:"variables"`
}

type revealResponse struct {
	Value string `json:"value"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	list, err := s.vault.ListProjects(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := userFrom(r.Context())
	project, err := s.vault.CreateProject(r.Context(), user.ID, services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	project, variables, err := s.vault.GetProject(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projectDetailResponse{Project: project, Variables: variables})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := userFrom(r.Context())
	project, err := s.vault.UpdateProject(r.Context(), r.PathValue("id"), user.ID, services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if err := s.vault.DeleteProject(r.Context(), r.PathValue("id"), user.ID, clientInfo(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
}

func (s *Server) handleCreateVariable(w http.ResponseWriter, r *http.Request) {
	var req variableRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := userFrom(r.Context())
	variable, err := s.vault.CreateVariable(r.Context(), r.PathValue("id"), user.ID, services.VariableInput{
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
		IsSecret:    req.IsSecret,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, variable)
}

func (s *Server) handleUpdateVariable(w http.ResponseWriter, r *http.Request) {
	var req variableRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := userFrom(r.Context())
	variable, err := s.vault.UpdateVariable(r.Context(), r.PathValue("id"), user.ID, services.VariableInput{
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, variable)
}

func (s *Server) handleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if err := s.vault.DeleteVariable(r.Context(), r.PathValue("id"), user.ID, clientInfo(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "variable deleted"})
}

func (s *Server) handleRevealVariable(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	value, err := s.vault.RevealVariable(r.Context(), r.PathValue("id"), user.ID, clientInfo(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revealResponse{Value: value})
}
