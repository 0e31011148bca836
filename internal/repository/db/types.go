package db

import (
	"fmt"
	"strings"
)

// DatabaseType represents supported database types
type DatabaseType string

const (
	SQLite     DatabaseType = "sqlite"
	MySQL      DatabaseType = "mysql"
	PostgreSQL DatabaseType = "postgres"
)

// String returns string representation
func (dt DatabaseType) String() string {
	return string(dt)
}

// IsValid checks if database type is valid
func (dt DatabaseType) IsValid() bool {
	switch dt {
	case SQLite, MySQL, PostgreSQL:
		return true
	default:
		return false
	}
}

// ParseDatabaseType maps config names and aliases to a type / Convertit le nom configuré en type
//
// An empty name selects SQLite.
func ParseDatabaseType(name string) (DatabaseType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql":
		return PostgreSQL, nil
	}
	return "", fmt.Errorf("unsupported database type %q", name)
}
