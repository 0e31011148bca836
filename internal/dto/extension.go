package dto

import (
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ExtensionTokenResponse describes a roster extension token / Décrit un token d'extension
//
// Token holds the plaintext value and is only set on creation.
type ExtensionTokenResponse struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	ProfileID  int64      `json:"profile_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	Token      string     `json:"token,omitempty"`
}

// ExtensionTokenToDTO converts a token without its hash / Convertit un token sans son hash
func ExtensionTokenToDTO(t *domain.ExtensionToken, now time.Time) *ExtensionTokenResponse {
	return &ExtensionTokenResponse{
		ID:         t.ID,
		Name:       t.Name,
		ProfileID:  t.ProfileID,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		RevokedAt:  t.RevokedAt,
		Active:     t.IsActive(now),
		CreatedAt:  t.CreatedAt,
	}
}

// ExtensionTokensToDTO converts tokens / Convertit des tokens
func ExtensionTokensToDTO(ts []domain.ExtensionToken, now time.Time) []*ExtensionTokenResponse {
	out := make([]*ExtensionTokenResponse, 0, len(ts))
	for i := range ts {
		out = append(out, ExtensionTokenToDTO(&ts[i], now))
	}
	return out
}

// CreateTokenRequest names a new extension token / Nomme un nouveau token
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// ConfirmSyncRequest applies a staged sync / Applique une synchro préparée
type ConfirmSyncRequest struct {
	DeactivateMissing bool `json:"deactivate_missing"`
}
