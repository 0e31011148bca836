package sqlstore

import (
	"database/sql"

	"github.com/richblaalid/chuckbox/internal/ports"
)

// Factory builds every repository for one dialect / Construit tous les repositories d'un dialecte
type Factory[D Dialect] struct{}

func (Factory[D]) dialect() D {
	var d D
	return d
}

// NewProfileRepository creates profile repository / Crée le repository des profils
func (f *Factory[D]) NewProfileRepository(db *sql.DB) ports.ProfileRepository {
	return NewProfileRepository(db, f.dialect())
}

// NewRefreshTokenStore creates refresh token store / Crée le store de refresh tokens
func (f *Factory[D]) NewRefreshTokenStore(db *sql.DB) ports.RefreshTokenStore {
	return NewRefreshTokenStore(db, f.dialect())
}

// NewUnitRepository creates unit repository / Crée le repository des unités
func (f *Factory[D]) NewUnitRepository(db *sql.DB) ports.UnitRepository {
	return NewUnitRepository(db, f.dialect())
}

// NewMembershipRepository creates membership repository / Crée le repository des adhésions
func (f *Factory[D]) NewMembershipRepository(db *sql.DB) ports.MembershipRepository {
	return NewMembershipRepository(db, f.dialect())
}

// NewPermissionRepository creates permission repository / Crée le repository des permissions
func (f *Factory[D]) NewPermissionRepository(db *sql.DB) ports.PermissionRepository {
	return NewPermissionRepository(db, f.dialect())
}

// NewScoutRepository creates scout repository / Crée le repository des scouts
func (f *Factory[D]) NewScoutRepository(db *sql.DB) ports.ScoutRepository {
	return NewScoutRepository(db, f.dialect())
}

// NewFinanceRepository creates finance repository / Crée le repository financier
func (f *Factory[D]) NewFinanceRepository(db *sql.DB) ports.FinanceRepository {
	return NewFinanceRepository(db, f.dialect())
}

// NewAdvancementRepository creates advancement repository / Crée le repository de progression
func (f *Factory[D]) NewAdvancementRepository(db *sql.DB) ports.AdvancementRepository {
	return NewAdvancementRepository(db, f.dialect())
}

// NewExtensionRepository creates extension repository / Crée le repository de l'extension
func (f *Factory[D]) NewExtensionRepository(db *sql.DB) ports.ExtensionRepository {
	return NewExtensionRepository(db, f.dialect())
}
