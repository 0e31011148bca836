package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
	"github.com/richblaalid/chuckbox/internal/repository/sqlstore"
)

// Factory implements DatabaseFactory for PostgreSQL / Implémente DatabaseFactory pour PostgreSQL
type Factory = sqlstore.Factory[Dialect]

// Dialect implements sqlstore.Dialect for PostgreSQL / Implémente sqlstore.Dialect pour PostgreSQL
type Dialect struct{}

// Name returns database type / Retourne le type de base
func (Dialect) Name() string { return string(db.PostgreSQL) }

// Rebind rewrites ? as $n / Réécrit ? en $n
func (Dialect) Rebind(query string) string { return sqlstore.RebindDollar(query) }

// InsertID reads the id with RETURNING / Lit l'id avec RETURNING
func (Dialect) InsertID(ctx context.Context, dbtx ports.DBTX, query string, args ...any) (int64, error) {
	return sqlstore.ReturningID(ctx, dbtx, query, args...)
}

// ForUpdate locks the selected rows until commit / Verrouille les lignes lues jusqu'au commit
func (Dialect) ForUpdate() string { return " FOR UPDATE" }

// TranslateError translates PostgreSQL errors to typed errors / Traduit les erreurs PostgreSQL en erreurs typées
func (Dialect) TranslateError(err error) error {
	if err == nil {
		return nil
	}
	err = sqlstore.TranslateCommon(err)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return db.ErrDup
		case "23503": // foreign_key_violation
			return db.ErrForeignKeyViolation
		case "23514": // check_violation
			return db.ErrCheckViolation
		case "55P03": // lock_not_available
			return db.ErrLocked
		}
	}
	return err
}
