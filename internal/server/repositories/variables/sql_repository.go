package variables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/threelizards/safe-variables/internal/common"
	"github.com/threelizards/safe-variables/internal/dbx"
	"github.com/threelizards/safe-variables/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts a variable. A duplicate key within the project
// surfaces as common.ErrorAlreadyExists; the unique index on
// (project_id, key) is the final arbiter for concurrent creations.
func (r *SQLRepository) Create(ctx context.Context, variable *models.Variable) error {
	query := `INSERT INTO variables (id, project_id, key, value, description, is_secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		variable.ID, variable.ProjectID, variable.Key, variable.Value,
		variable.Description, variable.IsSecret, variable.CreatedAt, variable.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Variable, error) {
	query := `SELECT id, project_id, key, value, description, is_secret, created_at, updated_at
		 FROM variables
		 WHERE project_id = $1
		 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Variable
	for rows.Next() {
		v := &models.Variable{}
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Key, &v.Value, &v.Description,
			&v.IsSecret, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// GetForOwner fetches a variable only when its project belongs to
// ownerID.
func (r *SQLRepository) GetForOwner(ctx context.Context, id, ownerID string) (*models.Variable, error) {
	query := `SELECT v.id, v.project_id, v.key, v.value, v.description, v.is_secret, v.created_at, v.updated_at
		 FROM variables v
		 JOIN projects p ON p.id = v.project_id
		 WHERE v.id = $1 AND p.user_id = $2`

	v := &models.Variable{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&v.ID, &v.ProjectID, &v.Key, &v.Value, &v.Description,
			&v.IsSecret, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *SQLRepository) Update(ctx context.Context, variable *models.Variable) error {
	query := `UPDATE variables
		 SET key = $1, value = $2, description = $3, updated_at = $4
		 WHERE id = $5`

	res, err := r.db.ExecContext(ctx, query,
		variable.Key, variable.Value, variable.Description, variable.UpdatedAt, variable.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM variables
		 WHERE id = $1
		   AND project_id IN (SELECT id FROM projects WHERE user_id = $2)`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// DeleteByProject removes every variable of a project. Called inside
// the project-deletion transaction so the cascade holds even on
// backends where FK enforcement is off.
func (r *SQLRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM variables WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
