package projects

import (
	"context"

	"github.com/threelizards/safe-variables/internal/server/models"
)

// Repository operations that take an ownerID enforce ownership inside
// the query; a mismatch reads as common.ErrorNotFound so callers cannot
// probe for foreign resources.
type Repository interface {
	Create(ctx context.Context, project *models.Project) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id, ownerID string) error
}
