package repository

import (
	"database/sql"

	"github.com/richblaalid/chuckbox/internal/ports"
)

// DatabaseFactory must be implemented by each database package / Doit être implémenté par chaque package de BD
// Adding a repository here forces every dialect to provide it at compile time
// Ajouter un repository ici oblige chaque dialecte à le fournir à la compilation
type DatabaseFactory interface {
	NewProfileRepository(db *sql.DB) ports.ProfileRepository
	NewRefreshTokenStore(db *sql.DB) ports.RefreshTokenStore
	NewUnitRepository(db *sql.DB) ports.UnitRepository
	NewMembershipRepository(db *sql.DB) ports.MembershipRepository
	NewPermissionRepository(db *sql.DB) ports.PermissionRepository
	NewScoutRepository(db *sql.DB) ports.ScoutRepository
	NewFinanceRepository(db *sql.DB) ports.FinanceRepository
	NewAdvancementRepository(db *sql.DB) ports.AdvancementRepository
	NewExtensionRepository(db *sql.DB) ports.ExtensionRepository
}
