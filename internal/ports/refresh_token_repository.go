package ports

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// RefreshTokenStore persists rotated session tokens, keyed by their sha256 digest
// Persiste les tokens de session, indexés par leur empreinte sha256
type RefreshTokenStore interface {
	Save(ctx context.Context, token *domain.RefreshToken) error
	// Get looks a token up by its plaintext value / Cherche un token par sa valeur
	Get(ctx context.Context, tokenString string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenString string) error
	// RevokeAllForProfile ends every session of a profile (login, logout, password reset)
	RevokeAllForProfile(ctx context.Context, profileID int64) error
	// PurgeExpired deletes tokens expired before the cutoff and returns the count
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
	WithTx(dbtx DBTX) RefreshTokenStore
}
