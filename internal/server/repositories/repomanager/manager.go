// Package repomanager wires repositories to a database handle and runs
// schema migrations. Repositories are constructed per call against a
// dbx.DBTX, so the same factory serves plain connections and
// transactions.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/threelizards/safe-variables/internal/dbx"
	"github.com/threelizards/safe-variables/internal/server/repositories/projects"
	"github.com/threelizards/safe-variables/internal/server/repositories/users"
	"github.com/threelizards/safe-variables/internal/server/repositories/variables"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Projects(db dbx.DBTX) projects.Repository
	Variables(db dbx.DBTX) variables.Repository
}
