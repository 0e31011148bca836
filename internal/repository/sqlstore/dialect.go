// Package sqlstore holds the SQL repositories shared by every supported
// database. Each driver package supplies a Dialect that rewrites
// placeholders, reads generated IDs and translates driver errors.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
)

// Dialect isolates driver differences / Isole les différences entre drivers
type Dialect interface {
	// Name returns the database type / Retourne le type de base
	Name() string
	// Rebind rewrites ? placeholders for the driver / Réécrit les placeholders
	Rebind(query string) string
	// TranslateError maps driver errors to db errors / Traduit les erreurs du driver
	TranslateError(err error) error
	// InsertID runs an INSERT and returns the generated id / Exécute un INSERT et retourne l'id
	InsertID(ctx context.Context, dbtx ports.DBTX, query string, args ...any) (int64, error)
	// ForUpdate is the row-locking suffix for SELECTs inside a transaction / Suffixe de verrouillage
	ForUpdate() string
}

// RebindDollar converts ? placeholders to $1, $2... / Convertit ? en $1, $2...
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			inQuote = !inQuote
		}
		if c == '?' && !inQuote {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// LastInsertID reads the id from sql.Result / Lit l'id depuis sql.Result
func LastInsertID(ctx context.Context, dbtx ports.DBTX, query string, args ...any) (int64, error) {
	res, err := dbtx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ReturningID appends RETURNING id and scans it / Ajoute RETURNING id et le lit
func ReturningID(ctx context.Context, dbtx ports.DBTX, query string, args ...any) (int64, error) {
	var id int64
	err := dbtx.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
	return id, err
}

// conn runs dialect-aware queries / Exécute des requêtes selon le dialecte
type conn struct {
	db ports.DBTX
	d  Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.db.ExecContext(ctx, c.d.Rebind(query), args...)
	return res, c.d.TranslateError(err)
}

// execOne fails with ErrNoRecord when nothing changed / Échoue si aucune ligne n'est modifiée
func (c conn) execOne(ctx context.Context, query string, args ...any) error {
	n, err := c.execCount(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNoRecord
	}
	return nil
}

func (c conn) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return n, c.d.TranslateError(err)
}

func (c conn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	id, err := c.d.InsertID(ctx, c.db, c.d.Rebind(query), args...)
	return id, c.d.TranslateError(err)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, c.d.Rebind(query), args...)
	return rows, c.d.TranslateError(err)
}

// scanRow runs a single-row query into dest / Exécute une requête mono-ligne
func (c conn) scanRow(ctx context.Context, query string, args []any, dest ...any) error {
	err := c.db.QueryRowContext(ctx, c.d.Rebind(query), args...).Scan(dest...)
	return c.d.TranslateError(err)
}

// exists evaluates a SELECT EXISTS(...) query / Évalue une requête SELECT EXISTS(...)
func (c conn) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := c.scanRow(ctx, query, args, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// TranslateCommon handles errors every driver shares / Traite les erreurs communes
func TranslateCommon(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNoRecord
	}
	return err
}

// placeholders returns "?, ?, ?" for n values / Retourne "?, ?, ?" pour n valeurs
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// nullString stores empty strings as NULL / Stocke les chaînes vides en NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// now returns the storage clock in UTC / Retourne l'horloge de stockage en UTC
func now() time.Time {
	return time.Now().UTC()
}

// utc normalizes optional times / Normalise les heures optionnelles
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
