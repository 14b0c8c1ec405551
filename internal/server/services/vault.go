package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threelizards/safe-variables/internal/common"
	"github.com/threelizards/safe-variables/internal/cryptox"
	"github.com/threelizards/safe-variables/internal/dbx"
	"github.com/threelizards/safe-variables/internal/logging"
	"github.com/threelizards/safe-variables/internal/server/audit"
	"github.com/threelizards/safe-variables/internal/server/models"
	"github.com/threelizards/safe-variables/internal/server/repositories/repomanager"
)

const (
	maxProjectNameLength = 100
	maxVariableKeyLength = 100
)

// ProjectInput carries create/update fields for a project.
type ProjectInput struct {
	Name        string
	Description string
}

// VariableInput carries create/update fields for a variable. On update
// an empty Value for a secret variable keeps the stored ciphertext
// unchanged; IsSecret is honored only at creation time.
type VariableInput struct {
	Key         string
	Value       string
	Description string
	IsSecret    bool
}

// VaultService owns projects and variables: ownership checks, input
// validation, and secret encryption all happen here, above the
// repositories.
type VaultService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	cipher *cryptox.Cipher
	audit  *audit.Recorder
	logger logging.Logger
	now    func() time.Time
}

func NewVaultService(db *sql.DB, repos repomanager.RepositoryManager, cipher *cryptox.Cipher,
	recorder *audit.Recorder, logger logging.Logger) *VaultService {
	return &VaultService{
		db:     db,
		repos:  repos,
		cipher: cipher,
		audit:  recorder,
		logger: logger,
		now:    time.Now,
	}
}

func (s *VaultService) CreateProject(ctx context.Context, ownerID string, in ProjectInput) (*models.Project, error) {
	name, err := validateProjectName(in.Name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	project := &models.Project{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repos.Projects(s.db).Create(ctx, project); err != nil {
		s.logger.Error(ctx, "project creation failed", "error", err)
		return nil, common.ErrorInternal
	}

	return project, nil
}

// ListProjects returns the owner's projects, most recently updated
// first, with derived variable and secret counts.
func (s *VaultService) ListProjects(ctx context.Context, ownerID string) ([]*models.Project, error) {
	list, err := s.repos.Projects(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error(ctx, "project listing failed", "error", err)
		return nil, common.ErrorInternal
	}
	return list, nil
}

// GetProject returns a project with its variables. Secret values stay
// in their stored (encrypted) form; RevealVariable is the only decrypt
// path.
func (s *VaultService) GetProject(ctx context.Context, id, ownerID string) (*models.Project, []*models.Variable, error) {
	project, err := s.repos.Projects(s.db).GetForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "project lookup failed", "error", err)
		return nil, nil, common.ErrorInternal
	}

	vars, err := s.repos.Variables(s.db).ListByProject(ctx, project.ID)
	if err != nil {
		s.logger.Error(ctx, "variable listing failed", "error", err)
		return nil, nil, common.ErrorInternal
	}

	return project, vars, nil
}

func (s *VaultService) UpdateProject(ctx context.Context, id, ownerID string, in ProjectInput) (*models.Project, error) {
	name, err := validateProjectName(in.Name)
	if err != nil {
		return nil, err
	}

	repo := s.repos.Projects(s.db)

	project, err := repo.GetForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "project lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	project.Name = name
	project.Description = strings.TrimSpace(in.Description)
	project.UpdatedAt = s.now().UTC()

	if err := repo.Update(ctx, project); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "project update failed", "error", err)
		return nil, common.ErrorInternal
	}

	return project, nil
}

// DeleteProject removes the project and all its variables in one
// transaction.
func (s *VaultService) DeleteProject(ctx context.Context, id, ownerID string, client ClientInfo) error {
	if _, err := s.repos.Projects(s.db).GetForOwner(ctx, id, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "project lookup failed", "error", err)
		return common.ErrorInternal
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Variables(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		return s.repos.Projects(tx).Delete(ctx, id, ownerID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "project deletion failed", "error", err)
		return common.ErrorInternal
	}

	s.audit.Write(ctx, audit.Record{
		Actor:      ownerID,
		Action:     audit.ActionProjectDeleted,
		Resource:   "project",
		ResourceID: id,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return nil
}

func (s *VaultService) CreateVariable(ctx context.Context, projectID, ownerID string, in VariableInput) (*models.Variable, error) {
	if _, err := s.repos.Projects(s.db).GetForOwner(ctx, projectID, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "project lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	key, err := validateVariableKey(in.Key)
	if err != nil {
		return nil, err
	}
	if in.Value == "" {
		return nil, fmt.Errorf("%w: value must not be empty", common.ErrorValidation)
	}

	value := in.Value
	if in.IsSecret {
		value, err = s.cipher.Encrypt(in.Value)
		if err != nil {
			s.logger.Error(ctx, "value encryption failed", "error", err)
			return nil, common.ErrorInternal
		}
	}

	now := s.now().UTC()
	variable := &models.Variable{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Key:         key,
		Value:       value,
		Description: strings.TrimSpace(in.Description),
		IsSecret:    in.IsSecret,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repos.Variables(s.db).Create(ctx, variable); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorDuplicateKey
		}
		s.logger.Error(ctx, "variable creation failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.touchProject(ctx, projectID, ownerID)

	return variable, nil
}

// UpdateVariable changes key, value, and description. IsSecret never
// changes after creation; for a secret variable an empty value means
// "keep the current one", and a supplied value is encrypted afresh.
func (s *VaultService) UpdateVariable(ctx context.Context, id, ownerID string, in VariableInput) (*models.Variable, error) {
	repo := s.repos.Variables(s.db)

	variable, err := repo.GetForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "variable lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	key, err := validateVariableKey(in.Key)
	if err != nil {
		return nil, err
	}

	switch {
	case in.Value == "" && variable.IsSecret:
		// stored ciphertext stays as-is
	case in.Value == "":
		return nil, fmt.Errorf("%w: value must not be empty", common.ErrorValidation)
	case variable.IsSecret:
		enc, err := s.cipher.Encrypt(in.Value)
		if err != nil {
			s.logger.Error(ctx, "value encryption failed", "error", err)
			return nil, common.ErrorInternal
		}
		variable.Value = enc
	default:
		variable.Value = in.Value
	}

	variable.Key = key
	variable.Description = strings.TrimSpace(in.Description)
	variable.UpdatedAt = s.now().UTC()

	if err := repo.Update(ctx, variable); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.ErrorDuplicateKey
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "variable update failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.touchProject(ctx, variable.ProjectID, ownerID)

	return variable, nil
}

func (s *VaultService) DeleteVariable(ctx context.Context, id, ownerID string, client ClientInfo) error {
	variable, err := s.repos.Variables(s.db).GetForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "variable lookup failed", "error", err)
		return common.ErrorInternal
	}

	if err := s.repos.Variables(s.db).Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "variable deletion failed", "error", err)
		return common.ErrorInternal
	}

	s.touchProject(ctx, variable.ProjectID, ownerID)

	s.audit.Write(ctx, audit.Record{
		Actor:      ownerID,
		Action:     audit.ActionVariableDeleted,
		Resource:   "variable",
		ResourceID: id,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return nil
}

// RevealVariable returns the plaintext of a variable the caller owns.
// For a secret variable this is the only path that decrypts; every
// reveal of a secret is audited.
func (s *VaultService) RevealVariable(ctx context.Context, id, ownerID string, client ClientInfo) (string, error) {
	variable, err := s.repos.Variables(s.db).GetForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		s.logger.Error(ctx, "variable lookup failed", "error", err)
		return "", common.ErrorInternal
	}

	if !variable.IsSecret {
		return variable.Value, nil
	}

	plaintext, err := s.cipher.Decrypt(variable.Value)
	if err != nil {
		s.logger.Error(ctx, "value decryption failed", "variable_id", id, "error", err)
		return "", common.ErrorInternal
	}

	s.audit.Write(ctx, audit.Record{
		Actor:      ownerID,
		Action:     audit.ActionSecretRevealed,
		Resource:   "variable",
		ResourceID: id,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return plaintext, nil
}

// touchProject bumps the parent project's updated_at after a variable
// change. Failures are logged and swallowed: the variable write already
// succeeded.
func (s *VaultService) touchProject(ctx context.Context, projectID, ownerID string) {
	repo := s.repos.Projects(s.db)
	project, err := repo.GetForOwner(ctx, projectID, ownerID)
	if err != nil {
		s.logger.Warn(ctx, "project touch lookup failed", "project_id", projectID, "error", err)
		return
	}
	project.UpdatedAt = s.now().UTC()
	if err := repo.Update(ctx, project); err != nil {
		s.logger.Warn(ctx, "project touch failed", "project_id", projectID, "error", err)
	}
}

func validateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: project name must not be empty", common.ErrorValidation)
	}
	if len(name) > maxProjectNameLength {
		return "", fmt.Errorf("%w: project name must be at most %d characters",
			common.ErrorValidation, maxProjectNameLength)
	}
	if strings.ContainsAny(name, "<>") {
		return "", fmt.Errorf("%w: project name must not contain angle brackets", common.ErrorValidation)
	}
	return name, nil
}

func validateVariableKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: key must not be empty", common.ErrorValidation)
	}
	if len(key) > maxVariableKeyLength {
		return "", fmt.Errorf("%w: key must be at most %d characters",
			common.ErrorValidation, maxVariableKeyLength)
	}
	return key, nil
}
