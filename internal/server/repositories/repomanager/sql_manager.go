package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/threelizards/safe-variables/internal/dbx"
	"github.com/threelizards/safe-variables/internal/server/migrations"
	"github.com/threelizards/safe-variables/internal/server/repositories/projects"
	"github.com/threelizards/safe-variables/internal/server/repositories/users"
	"github.com/threelizards/safe-variables/internal/server/repositories/variables"
)

type SQLRepositoryManager struct {
	dialect string
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Variables(db dbx.DBTX) variables.Repository {
	return variables.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Open connects to the store named by dsn and returns the handle plus a
// manager configured for its dialect. Postgres DSNs go through pgx;
// anything else is treated as a SQLite path or URI, with foreign-key
// enforcement switched on.
func Open(dsn string) (*sql.DB, RepositoryManager, error) {
	driver, dialect := "sqlite", "sqlite3"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, dialect = "pgx", "pgx"
	}

	if driver == "sqlite" && !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	return db, &SQLRepositoryManager{dialect: dialect}, nil
}
