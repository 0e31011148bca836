package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is a profile's role within a unit / Rôle d'un profil dans une unité
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTreasurer Role = "treasurer"
	RoleLeader    Role = "leader"
	RoleParent    Role = "parent"
	RoleScout     Role = "scout"
)

// AllRoles lists unit roles from most to least privileged / Liste les rôles par privilège décroissant
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleTreasurer, RoleLeader, RoleParent, RoleScout}
}

// IsValid checks if role is valid / Vérifie si le rôle est valide
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer, RoleLeader, RoleParent, RoleScout:
		return true
	}
	return false
}

// ParseRole normalizes and validates a role name / Normalise et valide un nom de rôle
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// MembershipStatus tracks whether a membership is in effect / Indique si l'adhésion est active
type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
)

// Membership links a profile to a unit with a role / Lie un profil à une unité avec un rôle
type Membership struct {
	ID        int64
	UnitID    int64
	ProfileID int64
	Role      Role
	Status    MembershipStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	// Filled by listing queries
	Email string
	Name  string
}

// IsActive reports whether the membership is in effect / Indique si l'adhésion est active
func (m *Membership) IsActive() bool {
	return m.Status == MembershipActive
}

// Can reports whether the membership grants a permission / Indique si l'adhésion accorde la permission
func (m *Membership) Can(p Permission) bool {
	return m.IsActive() && m.Role.HasPermission(p)
}

// IsLastAdmin reports whether m is the only active admin left.
func IsLastAdmin(m *Membership, activeAdmins int) bool {
	return m.IsActive() && m.Role == RoleAdmin && activeAdmins <= 1
}

// CheckRoleChange validates that actor may move target to newRole.
// The last active admin of a unit can never be demoted, including by themselves.
func CheckRoleChange(actor, target *Membership, newRole Role, activeAdmins int) error {
	if actor == nil || !actor.Can(PermissionMembersManage) {
		return ErrForbidden
	}
	if !newRole.IsValid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, newRole)
	}
	if newRole != RoleAdmin && IsLastAdmin(target, activeAdmins) {
		return ErrLastAdmin
	}
	return nil
}

// CheckRemoval validates that actor may remove target from the unit.
// Members may always leave on their own, except the last admin.
func CheckRemoval(actor, target *Membership, activeAdmins int) error {
	if actor == nil {
		return ErrForbidden
	}
	self := actor.ProfileID == target.ProfileID
	if !self && !actor.Can(PermissionMembersManage) {
		return ErrForbidden
	}
	if IsLastAdmin(target, activeAdmins) {
		return ErrLastAdmin
	}
	return nil
}

// Invite is a pending invitation to join a unit / Invitation en attente à rejoindre une unité
type Invite struct {
	ID         int64
	UnitID     int64
	Email      string
	Role       Role
	TokenHash  string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	InvitedBy  int64
	CreatedAt  time.Time
}

// IsUsable reports whether the invite can still be accepted / Indique si l'invitation est utilisable
func (i *Invite) IsUsable(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
