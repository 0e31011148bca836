package web

import (
	"context"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ContextKey is a custom type used for creating context keys.
// Using a custom type for context keys helps prevent collisions between keys
// defined in different packages.
type ContextKey string

const (
	// ClaimsContextKey stores the validated JWT claims / Stocke les claims JWT validées
	ClaimsContextKey    = ContextKey("claims")
	profileIDKey        = ContextKey("profile_id")
	membershipKey       = ContextKey("membership")
	extensionTokenKey   = ContextKey("extension_token")
	requestIDContextKey = ContextKey("request_id")
)

// ProfileIDFrom returns the authenticated profile / Retourne le profil authentifié
func ProfileIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(profileIDKey).(int64)
	return id, ok
}

// MembershipFrom returns the membership loaded by RequireUnitPermission or ExtensionAuth
// Retourne l'adhésion chargée par RequireUnitPermission ou ExtensionAuth
func MembershipFrom(ctx context.Context) (*domain.Membership, bool) {
	m, ok := ctx.Value(membershipKey).(*domain.Membership)
	return m, ok && m != nil
}

// extensionTokenFrom returns the token authenticated by ExtensionAuth.
func extensionTokenFrom(ctx context.Context) (*domain.ExtensionToken, bool) {
	t, ok := ctx.Value(extensionTokenKey).(*domain.ExtensionToken)
	return t, ok && t != nil
}
