package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/updash/internal/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Up applies the pending schema migrations on the local state database.
func Up(db *sql.DB, logger log.Logger) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not create fs: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Errorf("could not close fs: %s", err)
		}
	}()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("could not get schema version: %w", err)
	}
	logger.Debugf("Schema at version %d (dirty: %t)", version, dirty)

	return nil
}
