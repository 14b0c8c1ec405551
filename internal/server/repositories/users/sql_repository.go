// Package users persists identity records. The SQL uses positional
// parameters and runs unchanged on PostgreSQL and SQLite.
package users

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

const userColumns = `id, email, password_hash, name, bio, company, position, avatar_url,
		phone, location, website, linkedin, github, timezone, created_at, updated_at`

// Create inserts a new user. A duplicate email surfaces as
// common.ErrorAlreadyExists; the unique index is the final arbiter for
// concurrent registrations.
func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Bio, user.Company,
		user.Position, user.AvatarURL, user.Phone, user.Location, user.Website,
		user.Linkedin, user.Github, user.Timezone, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// UpdateProfile persists the mutable profile attributes. Email and
// password hash are not touched here.
func (r *SQLRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `UPDATE users
		 SET name = $1, bio = $2, company = $3, position = $4, avatar_url = $5,
		     phone = $6, location = $7, website = $8, linkedin = $9, github = $10,
		     timezone = $11, updated_at = $12
		 WHERE id = $13`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.Bio, user.Company, user.Position, user.AvatarURL,
		user.Phone, user.Location, user.Website, user.Linkedin, user.Github,
		user.Timezone, user.UpdatedAt, user.ID)
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

func (r *SQLRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Bio,
		&user.Company, &user.Position, &user.AvatarURL, &user.Phone, &user.Location,
		&user.Website, &user.Linkedin, &user.Github, &user.Timezone,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
