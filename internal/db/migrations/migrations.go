// Package migrations embeds the goose schema migrations for every supported
// SQL dialect and applies them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// Dialect names a migrations directory together with its goose dialect.
type Dialect struct {
	dir   string
	goose string
}

var (
	Postgres = Dialect{dir: "postgres", goose: "postgres"}
	SQLite   = Dialect{dir: "sqlite", goose: "sqlite3"}
)

//go:embed postgres/*.sql sqlite/*.sql
var embedMigrations embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Up applies all pending migrations of the dialect to the database.
func Up(database *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.goose); err != nil {
		return fmt.Errorf(
			"in internal/db/migrations/migrations.go/Up(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.Up(database, dialect.dir); err != nil {
		return fmt.Errorf(
			"in internal/db/migrations/migrations.go/Up(): error while `goose.Up()` calling: %w",
			err,
		)
	}

	return nil
}
