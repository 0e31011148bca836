package mysql

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
	"github.com/richblaalid/chuckbox/internal/repository/sqlstore"
)

// Factory implements DatabaseFactory for MySQL / Implémente DatabaseFactory pour MySQL
type Factory = sqlstore.Factory[Dialect]

// Dialect implements sqlstore.Dialect for MySQL / Implémente sqlstore.Dialect pour MySQL
type Dialect struct{}

// Name returns database type / Retourne le type de base
func (Dialect) Name() string { return string(db.MySQL) }

// Rebind keeps ? placeholders / Garde les placeholders ?
func (Dialect) Rebind(query string) string { return query }

// InsertID uses LastInsertId / Utilise LastInsertId
func (Dialect) InsertID(ctx context.Context, dbtx ports.DBTX, query string, args ...any) (int64, error) {
	return sqlstore.LastInsertID(ctx, dbtx, query, args...)
}

// ForUpdate locks the selected rows until commit / Verrouille les lignes lues jusqu'au commit
func (Dialect) ForUpdate() string { return " FOR UPDATE" }

// TranslateError translates MySQL errors to typed errors / Traduit les erreurs MySQL en erreurs typées
func (Dialect) TranslateError(err error) error {
	if err == nil {
		return nil
	}
	err = sqlstore.TranslateCommon(err)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062: // ER_DUP_ENTRY
			return db.ErrDup
		case 1451, 1452: // ER_ROW_IS_REFERENCED_2, ER_NO_REFERENCED_ROW_2
			return db.ErrForeignKeyViolation
		case 3819: // ER_CHECK_CONSTRAINT_VIOLATED
			return db.ErrCheckViolation
		case 1205: // ER_LOCK_WAIT_TIMEOUT
			return db.ErrLocked
		}
	}
	return err
}
