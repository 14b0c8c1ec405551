package variables

import (
	"context"

	"github.com/threelizards/safe-variables/internal/server/models"
)

// Repository persists variable rows. Ownership-scoped operations join
// through the owning project; a mismatch reads as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, variable *models.Variable) error
	ListByProject(ctx context.Context, projectID string) ([]*models.Variable, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*models.Variable, error)
	Update(ctx context.Context, variable *models.Variable) error
	Delete(ctx context.Context, id, ownerID string) error
	DeleteByProject(ctx context.Context, projectID string) error
}
