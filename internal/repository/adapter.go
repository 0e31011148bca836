package repository

import (
	"database/sql"
	"strings"

	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/mysql"
	"github.com/richblaalid/chuckbox/internal/repository/postgres"
	"github.com/richblaalid/chuckbox/internal/repository/sqlite"
)

// Compile-time checks that every dialect factory satisfies DatabaseFactory
// Vérifications à la compilation que chaque factory satisfait DatabaseFactory
var (
	_ DatabaseFactory = (*sqlite.Factory)(nil)
	_ DatabaseFactory = (*mysql.Factory)(nil)
	_ DatabaseFactory = (*postgres.Factory)(nil)
)

// factoryRegistry holds all database factories / Registre de toutes les factories de BD
var factoryRegistry = map[string]DatabaseFactory{
	"sqlite":     &sqlite.Factory{},
	"sqlite3":    &sqlite.Factory{},
	"mysql":      &mysql.Factory{},
	"postgres":   &postgres.Factory{},
	"postgresql": &postgres.Factory{},
}

// Adapter adapts database connection to repositories / Adapte la connexion BD vers les repositories
type Adapter struct {
	db      *sql.DB
	factory DatabaseFactory
}

// NewAdapter creates repository adapter / Crée l'adapteur de repositories
func NewAdapter(db *sql.DB, driver string) *Adapter {
	factory := factoryRegistry[strings.ToLower(driver)]
	if factory == nil {
		factory = &sqlite.Factory{} // default fallback
	}

	return &Adapter{
		db:      db,
		factory: factory,
	}
}

// ProfileRepository returns profile repository / Retourne le repository des profils
func (a *Adapter) ProfileRepository() ports.ProfileRepository {
	return a.factory.NewProfileRepository(a.db)
}

// RefreshTokenStore returns refresh token store / Retourne le store de refresh tokens
func (a *Adapter) RefreshTokenStore() ports.RefreshTokenStore {
	return a.factory.NewRefreshTokenStore(a.db)
}

// UnitRepository returns unit repository / Retourne le repository des unités
func (a *Adapter) UnitRepository() ports.UnitRepository {
	return a.factory.NewUnitRepository(a.db)
}

// MembershipRepository returns membership repository / Retourne le repository des adhésions
func (a *Adapter) MembershipRepository() ports.MembershipRepository {
	return a.factory.NewMembershipRepository(a.db)
}

// PermissionRepository returns permission repository / Retourne le repository des permissions
func (a *Adapter) PermissionRepository() ports.PermissionRepository {
	return a.factory.NewPermissionRepository(a.db)
}

// ScoutRepository returns scout repository / Retourne le repository des scouts
func (a *Adapter) ScoutRepository() ports.ScoutRepository {
	return a.factory.NewScoutRepository(a.db)
}

// FinanceRepository returns finance repository / Retourne le repository financier
func (a *Adapter) FinanceRepository() ports.FinanceRepository {
	return a.factory.NewFinanceRepository(a.db)
}

// AdvancementRepository returns advancement repository / Retourne le repository de progression
func (a *Adapter) AdvancementRepository() ports.AdvancementRepository {
	return a.factory.NewAdvancementRepository(a.db)
}

// ExtensionRepository returns extension repository / Retourne le repository de l'extension
func (a *Adapter) ExtensionRepository() ports.ExtensionRepository {
	return a.factory.NewExtensionRepository(a.db)
}
