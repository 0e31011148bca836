package sqlstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.RefreshTokenStore = (*refreshTokenStore)(nil)

// refreshTokenStore implements RefreshTokenStore / Implémente RefreshTokenStore
type refreshTokenStore struct {
	conn
}

// NewRefreshTokenStore creates token store / Crée le magasin de tokens
func NewRefreshTokenStore(dbtx ports.DBTX, d Dialect) ports.RefreshTokenStore {
	return &refreshTokenStore{conn{db: dbtx, d: d}}
}

// WithTx returns store with transaction / Retourne le magasin avec transaction
func (s *refreshTokenStore) WithTx(dbtx ports.DBTX) ports.RefreshTokenStore {
	return &refreshTokenStore{conn{db: dbtx, d: s.d}}
}

// HashToken returns the stored form of an opaque token / Retourne la forme stockée d'un token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Save stores hashed refresh token / Stocke le token haché
func (s *refreshTokenStore) Save(ctx context.Context, t *domain.RefreshToken) error {
	if t == nil {
		return errors.New("the refresh token is null")
	}

	t.Token = HashToken(t.Token)

	_, err := s.exec(ctx, `
		INSERT INTO refresh_tokens (token, profile_id, issue_at, expires_at, is_revoked, ip_hash, ua_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Token,
		t.ProfileID,
		t.IssueAt.UTC(),
		t.ExpiresAt.UTC(),
		t.IsRevoked,
		t.IPHash,
		t.UAHash,
	)
	return err
}

// Get retrieves refresh token by plaintext value / Récupère le token par sa valeur
func (s *refreshTokenStore) Get(ctx context.Context, tokenString string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := s.scanRow(ctx, `
		SELECT token, profile_id, issue_at, expires_at, is_revoked, ip_hash, ua_hash
		FROM refresh_tokens
		WHERE token = ?`,
		[]any{HashToken(tokenString)},
		&t.Token,
		&t.ProfileID,
		&t.IssueAt,
		&t.ExpiresAt,
		&t.IsRevoked,
		&t.IPHash,
		&t.UAHash,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Revoke marks token as revoked / Marque le token comme révoqué
func (s *refreshTokenStore) Revoke(ctx context.Context, tokenString string) error {
	_, err := s.exec(ctx, `UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = ?`, HashToken(tokenString))
	return err
}

// RevokeAllForProfile revokes all tokens of a profile / Révoque tous les tokens du profil
func (s *refreshTokenStore) RevokeAllForProfile(ctx context.Context, profileID int64) error {
	_, err := s.exec(ctx, `UPDATE refresh_tokens SET is_revoked = TRUE WHERE profile_id = ?`, profileID)
	return err
}

// PurgeExpired deletes expired tokens / Supprime les tokens expirés
func (s *refreshTokenStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.execCount(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	slog.Debug("purged expired refresh tokens", "count", n)
	return n, nil
}
