package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/repository/db"
	"github.com/richblaalid/chuckbox/internal/repository/sqlitetest"
)

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		in      string
		want    db.DatabaseType
		wantErr bool
	}{
		{"", db.SQLite, false},
		{"sqlite3", db.SQLite, false},
		{" MySQL ", db.MySQL, false},
		{"postgresql", db.PostgreSQL, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := db.ParseDatabaseType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestOpenAndMigrate_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "chuckbox.db") + "?_pragma=foreign_keys(1)"
	database, err := db.Open(context.Background(), db.DatabaseConfig{DSN: dsn})
	require.NoError(t, err)
	defer database.Close()

	dir := sqlitetest.MigrationsDir()
	require.NoError(t, db.Migrate(database, db.SQLite, dir))
	// second run is a no-op
	require.NoError(t, db.Migrate(database, "", dir))

	var version int
	require.NoError(t, database.QueryRow(`SELECT version FROM `+db.MigrationsTable).Scan(&version))
	assert.Positive(t, version)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrate_UnsupportedType(t *testing.T) {
	database := sqlitetest.NewDB(t)
	err := db.Migrate(database, db.DatabaseType("oracle"), sqlitetest.MigrationsDir())
	assert.ErrorContains(t, err, "unsupported database type")
}
