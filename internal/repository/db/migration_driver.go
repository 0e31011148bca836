package db

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
)

// MigrationsTable records applied schema versions / Table des versions de schéma appliquées
const MigrationsTable = "chuckbox_migrations"

// migrationDriver pairs a golang-migrate driver name with its constructor
// Associe un nom de driver golang-migrate à son constructeur
type migrationDriver struct {
	name string
	open func(*sql.DB) (database.Driver, error)
}

var migrationDrivers = map[DatabaseType]migrationDriver{
	SQLite: {name: "sqlite3", open: func(db *sql.DB) (database.Driver, error) {
		return sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	}},
	MySQL: {name: "mysql", open: func(db *sql.DB) (database.Driver, error) {
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: MigrationsTable})
	}},
	PostgreSQL: {name: "postgres", open: func(db *sql.DB) (database.Driver, error) {
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	}},
}

// driverFor returns the migration driver for dbType / Retourne le driver de migration pour dbType
func driverFor(dbType DatabaseType) (migrationDriver, error) {
	d, ok := migrationDrivers[dbType]
	if !ok {
		return migrationDriver{}, fmt.Errorf("unsupported database type for migrations: %s", dbType)
	}
	return d, nil
}
