package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration describes the outcome of a schema migration.
type Migration struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate opens the audit database at path and moves its schema.
//   - targetVersion < 0 migrates to the latest version.
//   - targetVersion == 0 rolls back every migration.
//   - targetVersion > 0 migrates to that version.
func Migrate(path string, targetVersion int) (Migration, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return Migration{}, fmt.Errorf("open audit database: %w", err)
	}
	defer func() { _ = conn.Close() }()
	return migrateDB(conn, targetVersion)
}

func migrateDB(conn *sql.DB, targetVersion int) (Migration, error) {
	if err := conn.Ping(); err != nil {
		return Migration{}, fmt.Errorf("ping audit database: %w", err)
	}

	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return Migration{}, fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return Migration{}, fmt.Errorf("access migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return Migration{}, fmt.Errorf("create migration source: %w", err)
	}
	// m is not closed: closing it would close conn, which the caller owns.
	m, err := migrate.NewWithInstance("iofs", source, "cvrisk", driver)
	if err != nil {
		return Migration{}, fmt.Errorf("create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Migration{}, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return Migration{}, fmt.Errorf("audit database is dirty at version %d", current)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	result := Migration{From: current, To: current}
	if errors.Is(err, migrate.ErrNoChange) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("migrate audit database: %w", err)
	}

	result.Changed = true
	next, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("read migration version: %w", err)
	}
	result.To = next
	return result, nil
}
