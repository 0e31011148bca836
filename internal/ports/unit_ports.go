package ports

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// UnitMembership is a unit seen from one member / Une unité vue par un membre
type UnitMembership struct {
	Unit domain.Unit
	Role domain.Role
}

// UnitRepository stores units / Stocke les unités
type UnitRepository interface {
	// Create inserts a unit / Insère une unité
	Create(ctx context.Context, u *domain.Unit) error
	// GetByID retrieves a unit / Récupère une unité
	GetByID(ctx context.Context, id int64) (*domain.Unit, error)
	// ListForProfile lists units with an active membership / Liste les unités d'un profil
	ListForProfile(ctx context.Context, profileID int64) ([]UnitMembership, error)
	// UpdateSettings stores fees and Square location / Enregistre frais et emplacement Square
	UpdateSettings(ctx context.Context, unitID int64, fees domain.FeeSettings, squareLocationID string) error
	// WithTx returns repository with transaction / Retourne le référentiel avec transaction
	WithTx(dbtx DBTX) UnitRepository
}

// MembershipRepository stores memberships and invites / Stocke adhésions et invitations
type MembershipRepository interface {
	// Upsert creates or reactivates a membership / Crée ou réactive une adhésion
	Upsert(ctx context.Context, m *domain.Membership) error
	// Get retrieves a profile's membership in a unit / Récupère l'adhésion d'un profil
	Get(ctx context.Context, unitID, profileID int64) (*domain.Membership, error)
	// GetByID retrieves a membership by ID within a unit / Récupère une adhésion par ID
	GetByID(ctx context.Context, unitID, id int64) (*domain.Membership, error)
	// List lists active memberships with profile names / Liste les adhésions actives
	List(ctx context.Context, unitID int64) ([]domain.Membership, error)
	// UpdateRole changes a membership role / Change le rôle
	UpdateRole(ctx context.Context, unitID, id int64, role domain.Role) error
	// Deactivate marks a membership inactive / Désactive une adhésion
	Deactivate(ctx context.Context, unitID, id int64) error
	// CountActiveAdmins counts active admins of a unit / Compte les admins actifs
	CountActiveAdmins(ctx context.Context, unitID int64) (int, error)

	// CreateInvite stores an invite / Stocke une invitation
	CreateInvite(ctx context.Context, inv *domain.Invite) error
	// GetInviteByHash finds an invite by token hash / Trouve une invitation par hash
	GetInviteByHash(ctx context.Context, tokenHash string) (*domain.Invite, error)
	// MarkInviteAccepted stamps acceptance / Marque l'invitation acceptée
	MarkInviteAccepted(ctx context.Context, id int64, at time.Time) error
	// PurgeExpiredInvites deletes unused expired invites / Supprime les invitations expirées
	PurgeExpiredInvites(ctx context.Context, before time.Time) (int64, error)

	// WithTx returns repository with transaction / Retourne le référentiel avec transaction
	WithTx(dbtx DBTX) MembershipRepository
}

// PermissionRepository resolves role permissions / Résout les permissions des rôles
type PermissionRepository interface {
	// GetPermissionsForRole gets permissions for role / Obtient les permissions du rôle
	GetPermissionsForRole(ctx context.Context, role domain.Role) ([]domain.Permission, error)
	// MemberHasPermission checks an active member's permission / Vérifie la permission d'un membre actif
	MemberHasPermission(ctx context.Context, unitID, profileID int64, permission domain.Permission) (bool, error)
}
