package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file" // Required for file-based migrations
)

// Migrate applies pending migrations from dir / Applique les migrations en attente depuis dir
func Migrate(database *sql.DB, dbType DatabaseType, dir string) error {
	if dbType == "" {
		dbType = SQLite
	}

	md, err := driverFor(dbType)
	if err != nil {
		return err
	}

	driver, err := md.open(database)
	if err != nil {
		return fmt.Errorf("could not create %s migration driver: %w", dbType, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, md.name, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	slog.Info("applying database migrations", "type", dbType, "path", dir)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	slog.Info("database migrations applied", "version", version, "dirty", dirty)
	return nil
}
