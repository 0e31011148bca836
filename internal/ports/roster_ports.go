package ports

import (
	"context"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ScoutFilter narrows scout listings / Filtre les listes de scouts
type ScoutFilter struct {
	IncludeInactive bool
	PatrolID        *int64
	IDs             []int64
}

// ScoutRepository stores scouts, patrols and guardians / Stocke scouts, patrouilles et tuteurs
type ScoutRepository interface {
	Create(ctx context.Context, s *domain.Scout) error
	Update(ctx context.Context, s *domain.Scout) error
	SetStatus(ctx context.Context, unitID, id int64, status domain.ScoutStatus) error
	GetByID(ctx context.Context, unitID, id int64) (*domain.Scout, error)
	List(ctx context.Context, unitID int64, filter ScoutFilter) ([]domain.Scout, error)

	CreatePatrol(ctx context.Context, p *domain.Patrol) error
	ListPatrols(ctx context.Context, unitID int64) ([]domain.Patrol, error)
	// DeletePatrol removes a patrol and clears it from scouts / Supprime une patrouille
	DeletePatrol(ctx context.Context, unitID, id int64) error

	AddGuardian(ctx context.Context, g *domain.Guardian) error
	ListGuardians(ctx context.Context, scoutIDs []int64) ([]domain.Guardian, error)
	IsGuardian(ctx context.Context, scoutID, profileID int64) (bool, error)
	// GuardedScoutIDs lists scouts a profile is guardian of in a unit / Scouts sous tutelle du profil
	GuardedScoutIDs(ctx context.Context, unitID, profileID int64) ([]int64, error)

	WithTx(dbtx DBTX) ScoutRepository
}
