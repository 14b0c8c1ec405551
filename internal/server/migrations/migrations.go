// Package migrations embeds the goose SQL migrations applied at
// startup. The SQL is written to run unchanged on both PostgreSQL and
// SQLite: ids are TEXT generated in Go, timestamps are set by the
// application.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
