package sqlite

import (
	"context"
	"errors"
	"log/slog"

	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
	"github.com/richblaalid/chuckbox/internal/repository/sqlstore"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Factory implements DatabaseFactory for SQLite / Implémente DatabaseFactory pour SQLite
// The compile-time check is in adapter.go to avoid import cycles
// La vérification à la compilation est dans adapter.go pour éviter les cycles d'imports
type Factory = sqlstore.Factory[Dialect]

// Dialect implements sqlstore.Dialect for SQLite / Implémente sqlstore.Dialect pour SQLite
type Dialect struct{}

// Name returns database type / Retourne le type de base
func (Dialect) Name() string { return string(db.SQLite) }

// Rebind keeps ? placeholders / Garde les placeholders ?
func (Dialect) Rebind(query string) string { return query }

// InsertID uses LastInsertId / Utilise LastInsertId
func (Dialect) InsertID(ctx context.Context, dbtx ports.DBTX, query string, args ...any) (int64, error) {
	return sqlstore.LastInsertID(ctx, dbtx, query, args...)
}

// ForUpdate is empty: SQLite has no row locks, and a transaction that read
// stale rows fails with SQLITE_BUSY when it tries to write.
func (Dialect) ForUpdate() string { return "" }

// TranslateError translates DB errors to typed errors / Traduit les erreurs DB en erreurs typées
func (Dialect) TranslateError(err error) error {
	if err == nil {
		return nil
	}
	err = sqlstore.TranslateCommon(err)

	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return err
	}
	code := liteErr.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return db.ErrDup
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return db.ErrForeignKeyViolation
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return db.ErrCheckViolation
	}
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY:
		slog.Warn("database is busy", "error", liteErr.Error())
		return db.ErrBusy
	case sqlite3.SQLITE_LOCKED:
		slog.Warn("database is locked", "error", liteErr.Error())
		return db.ErrLocked
	}
	slog.Debug("sqlite error", "code", code, "message", liteErr.Error())
	return err
}
