package domain

import "slices"

// Permission represents granular permission (resource:action pattern) / Permission granulaire (pattern resource:action)
type Permission string

// Unit-scoped permissions / Permissions au niveau de l'unité
const (
	PermissionUnitRead         Permission = "unit:read"
	PermissionUnitManage       Permission = "unit:manage"
	PermissionMembersManage    Permission = "members:manage"
	PermissionRosterRead       Permission = "roster:read"
	PermissionRosterWrite      Permission = "roster:write"
	PermissionRosterSync       Permission = "roster:sync"
	PermissionFinanceRead      Permission = "finance:read"
	PermissionFinanceWrite     Permission = "finance:write"
	PermissionFinanceSettings  Permission = "finance:settings"
	PermissionFinanceSelf      Permission = "finance:self"
	PermissionPaymentsCollect  Permission = "payments:collect"
	PermissionPaymentsMake     Permission = "payments:make"
	PermissionAdvancementRead  Permission = "advancement:read"
	PermissionAdvancementWrite Permission = "advancement:write"
)

// AllPermissions returns all defined permissions / Retourne toutes les permissions définies
func AllPermissions() []Permission {
	return []Permission{
		PermissionUnitRead,
		PermissionUnitManage,
		PermissionMembersManage,
		PermissionRosterRead,
		PermissionRosterWrite,
		PermissionRosterSync,
		PermissionFinanceRead,
		PermissionFinanceWrite,
		PermissionFinanceSettings,
		PermissionFinanceSelf,
		PermissionPaymentsCollect,
		PermissionPaymentsMake,
		PermissionAdvancementRead,
		PermissionAdvancementWrite,
	}
}

// String returns permission as string / Retourne la permission en string
func (p Permission) String() string {
	return string(p)
}

// DefaultPermissionsForRole returns default permissions for role / Retourne les permissions par défaut du rôle
func DefaultPermissionsForRole(role Role) []Permission {
	switch role {
	case RoleAdmin:
		return AllPermissions()

	case RoleTreasurer:
		return []Permission{
			PermissionUnitRead,
			PermissionRosterRead,
			PermissionFinanceRead,
			PermissionFinanceWrite,
			PermissionFinanceSettings,
			PermissionFinanceSelf,
			PermissionPaymentsCollect,
			PermissionPaymentsMake,
			PermissionAdvancementRead,
		}

	case RoleLeader:
		return []Permission{
			PermissionUnitRead,
			PermissionRosterRead,
			PermissionRosterWrite,
			PermissionRosterSync,
			PermissionFinanceRead,
			PermissionFinanceSelf,
			PermissionAdvancementRead,
			PermissionAdvancementWrite,
		}

	case RoleParent:
		return []Permission{
			PermissionUnitRead,
			PermissionRosterRead,
			PermissionFinanceSelf,
			PermissionPaymentsMake,
			PermissionAdvancementRead,
		}

	case RoleScout:
		return []Permission{
			PermissionUnitRead,
			PermissionFinanceSelf,
			PermissionAdvancementRead,
		}

	default:
		return []Permission{}
	}
}

// HasPermission checks role grants permission / Vérifie que le rôle accorde la permission
func (r Role) HasPermission(p Permission) bool {
	return slices.Contains(DefaultPermissionsForRole(r), p)
}

// RolePermissionModel represents role-permission relationship / Représente la relation rôle-permission
type RolePermissionModel struct {
	Role       Role
	Permission Permission
}
