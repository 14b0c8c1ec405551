package projects

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

func (r *SQLRepository) Create(ctx context.Context, project *models.Project) error {
	query := `INSERT INTO projects (id, user_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.UserID, project.Name, project.Description,
		project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// ListByOwner returns the owner's projects, newest-updated first, with
// derived variable and secret counts.
func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	query := `SELECT p.id, p.user_id, p.name, p.description, p.created_at, p.updated_at,
		        COUNT(v.id),
		        COALESCE(SUM(CASE WHEN v.is_secret THEN 1 ELSE 0 END), 0)
		 FROM projects p
		 LEFT JOIN variables v ON v.project_id = p.id
		 WHERE p.user_id = $1
		 GROUP BY p.id, p.user_id, p.name, p.description, p.created_at, p.updated_at
		 ORDER BY p.updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description,
			&p.CreatedAt, &p.UpdatedAt, &p.VariableCount, &p.SecretCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) GetForOwner(ctx context.Context, id, ownerID string) (*models.Project, error) {
	query := `SELECT id, user_id, name, description, created_at, updated_at
		 FROM projects
		 WHERE id = $1 AND user_id = $2`

	p := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *SQLRepository) Update(ctx context.Context, project *models.Project) error {
	query := `UPDATE projects
		 SET name = $1, description = $2, updated_at = $3
		 WHERE id = $4 AND user_id = $5`

	res, err := r.db.ExecContext(ctx, query,
		project.Name, project.Description, project.UpdatedAt, project.ID, project.UserID)
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

func (r *SQLRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM projects WHERE id = $1 AND user_id = $2`

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
