package sqlstore

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.ExtensionRepository = (*extensionRepository)(nil)

type extensionRepository struct {
	conn
}

// NewExtensionRepository creates extension repository / Crée le repository de l'extension
func NewExtensionRepository(dbtx ports.DBTX, d Dialect) ports.ExtensionRepository {
	return &extensionRepository{conn{db: dbtx, d: d}}
}

func (r *extensionRepository) WithTx(dbtx ports.DBTX) ports.ExtensionRepository {
	return &extensionRepository{conn{db: dbtx, d: r.d}}
}

const tokenColumns = `id, unit_id, profile_id, name, token_hash, expires_at, last_used_at, revoked_at, created_at`

func scanToken(scan func(dest ...any) error) (*domain.ExtensionToken, error) {
	t := &domain.ExtensionToken{}
	if err := scan(&t.ID, &t.UnitID, &t.ProfileID, &t.Name, &t.TokenHash, &t.ExpiresAt, &t.LastUsedAt,
		&t.RevokedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *extensionRepository) CreateToken(ctx context.Context, t *domain.ExtensionToken) error {
	ts := now()
	id, err := r.insert(ctx, `
		INSERT INTO extension_tokens (unit_id, profile_id, name, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, t.UnitID, t.ProfileID, t.Name, t.TokenHash, t.ExpiresAt.UTC(), ts)
	if err != nil {
		return err
	}
	t.ID = id
	t.CreatedAt = ts
	return nil
}

func (r *extensionRepository) GetTokenByHash(ctx context.Context, hash string) (*domain.ExtensionToken, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+tokenColumns+` FROM extension_tokens WHERE token_hash = ?`), hash)
	t, err := scanToken(row.Scan)
	return t, r.d.TranslateError(err)
}

func (r *extensionRepository) ListTokens(ctx context.Context, unitID int64) ([]domain.ExtensionToken, error) {
	rows, err := r.query(ctx, `SELECT `+tokenColumns+` FROM extension_tokens WHERE unit_id = ? ORDER BY created_at DESC, id DESC`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExtensionToken
	for rows.Next() {
		t, err := scanToken(rows.Scan)
		if err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *t)
	}
	return out, r.d.TranslateError(rows.Err())
}

func (r *extensionRepository) RevokeToken(ctx context.Context, unitID, id int64, at time.Time) error {
	return r.execOne(ctx, `UPDATE extension_tokens SET revoked_at = ? WHERE unit_id = ? AND id = ? AND revoked_at IS NULL`,
		at.UTC(), unitID, id)
}

func (r *extensionRepository) TouchToken(ctx context.Context, id int64, at time.Time) error {
	_, err := r.exec(ctx, `UPDATE extension_tokens SET last_used_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// PurgeTokens deletes tokens expired or revoked before a cutoff / Supprime les tokens périmés
func (r *extensionRepository) PurgeTokens(ctx context.Context, before time.Time) (int64, error) {
	return r.execCount(ctx, `DELETE FROM extension_tokens WHERE expires_at < ? OR revoked_at < ?`, before.UTC(), before.UTC())
}

func (r *extensionRepository) CreateSync(ctx context.Context, s *domain.RosterSync) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	if s.Status == "" {
		s.Status = domain.SyncPending
	}
	_, err := r.exec(ctx, `
		INSERT INTO roster_syncs (id, unit_id, token_id, status, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UnitID, s.TokenID, string(s.Status), string(s.Payload), s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	return err
}

func (r *extensionRepository) GetSync(ctx context.Context, unitID int64, id string) (*domain.RosterSync, error) {
	s := &domain.RosterSync{}
	var payload string
	if err := r.scanRow(ctx, `
		SELECT id, unit_id, token_id, status, payload, created_at, expires_at, applied_at
		FROM roster_syncs WHERE unit_id = ? AND id = ?`, []any{unitID, id},
		&s.ID, &s.UnitID, &s.TokenID, &s.Status, &payload, &s.CreatedAt, &s.ExpiresAt, &s.AppliedAt); err != nil {
		return nil, err
	}
	s.Payload = []byte(payload)
	return s, nil
}

// MarkSyncApplied flips a pending sync to applied, false when it was not pending
func (r *extensionRepository) MarkSyncApplied(ctx context.Context, unitID int64, id string, at time.Time) (bool, error) {
	n, err := r.execCount(ctx, `UPDATE roster_syncs SET status = ?, applied_at = ? WHERE unit_id = ? AND id = ? AND status = ?`,
		string(domain.SyncApplied), at.UTC(), unitID, id, string(domain.SyncPending))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExpireSyncs marks overdue pending syncs expired / Marque les synchros en retard comme expirées
func (r *extensionRepository) ExpireSyncs(ctx context.Context, at time.Time) (int64, error) {
	return r.execCount(ctx, `UPDATE roster_syncs SET status = ? WHERE status = ? AND expires_at <= ?`,
		string(domain.SyncExpired), string(domain.SyncPending), at.UTC())
}
