// Package sqlitetest opens migrated SQLite databases for tests.
package sqlitetest

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/richblaalid/chuckbox/internal/repository/db"
	_ "modernc.org/sqlite"
)

// MigrationsDir returns the SQLite migrations directory / Retourne le dossier des migrations SQLite
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations", "sqlite")
}

// NewDB opens a fresh migrated database in t.TempDir / Ouvre une base migrée dans t.TempDir
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.Migrate(database, db.SQLite, MigrationsDir()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}
