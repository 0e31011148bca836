package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
)

// GuardianSelf is the relationship linking a scout-role profile to its own scout record
const GuardianSelf = "self"

// Access resolves unit memberships and scout-scoped permissions / Résout adhésions et permissions par scout
type Access struct {
	members ports.MembershipRepository
	scouts  ports.ScoutRepository
}

// NewAccess creates the access checker / Crée le vérificateur d'accès
func NewAccess(members ports.MembershipRepository, scouts ports.ScoutRepository) *Access {
	return &Access{members: members, scouts: scouts}
}

// Membership returns the active membership of a profile in a unit.
// Non-members get ErrNotFound so unit existence is not revealed.
func (a *Access) Membership(ctx context.Context, unitID, profileID int64) (*domain.Membership, error) {
	m, err := a.members.Get(ctx, unitID, profileID)
	if errors.Is(err, repository.ErrNoRecord) || (err == nil && !m.IsActive()) {
		return nil, fmt.Errorf("unit: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return m, nil
}

// Require returns the membership when it grants perm / Retourne l'adhésion si elle accorde perm
func (a *Access) Require(ctx context.Context, unitID, profileID int64, perm domain.Permission) (*domain.Membership, error) {
	m, err := a.Membership(ctx, unitID, profileID)
	if err != nil {
		return nil, err
	}
	if !m.Can(perm) {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrForbidden, perm)
	}
	return m, nil
}

// CanAccessScout checks broad or guardian-scoped access to one scout.
// broad covers every scout of the unit; self only scouts the actor is guardian of.
func (a *Access) CanAccessScout(ctx context.Context, actor *domain.Membership, scoutID int64, broad, self domain.Permission) error {
	if actor == nil {
		return domain.ErrForbidden
	}
	if actor.Can(broad) {
		return nil
	}
	if !actor.Can(self) {
		return fmt.Errorf("%w: missing %s", domain.ErrForbidden, broad)
	}
	ok, err := a.scouts.IsGuardian(ctx, scoutID, actor.ProfileID)
	if err != nil {
		return fmt.Errorf("check guardian: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: not a guardian of this scout", domain.ErrForbidden)
	}
	return nil
}

// VisibleScouts returns nil when the actor sees every scout, else the guarded scout IDs.
func (a *Access) VisibleScouts(ctx context.Context, actor *domain.Membership, broad domain.Permission) ([]int64, error) {
	if actor.Can(broad) {
		return nil, nil
	}
	ids, err := a.scouts.GuardedScoutIDs(ctx, actor.UnitID, actor.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("list guarded scouts: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// filterVisible keeps items whose scout ID is visible / Garde les éléments visibles
func filterVisible[T any](items []T, visible []int64, scoutID func(T) int64) []T {
	if visible == nil {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if slices.Contains(visible, scoutID(it)) {
			out = append(out, it)
		}
	}
	return out
}
