package ports

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// AdvancementRepository stores the badge catalog and scout progress / Stocke catalogue et progression
type AdvancementRepository interface {
	// UpsertBadge creates or updates a badge and its requirements / Crée ou met à jour un badge
	UpsertBadge(ctx context.Context, b *domain.MeritBadge) error
	ListBadges(ctx context.Context) ([]domain.MeritBadge, error)
	// GetBadgeByCode returns a badge with requirements / Retourne un badge avec ses exigences
	GetBadgeByCode(ctx context.Context, code string) (*domain.MeritBadge, error)

	StartBadge(ctx context.Context, sb *domain.ScoutBadge) error
	GetScoutBadge(ctx context.Context, scoutID, badgeID int64) (*domain.ScoutBadge, error)
	// ListScoutBadges returns badges with completions / Retourne les badges avec validations
	ListScoutBadges(ctx context.Context, scoutID int64) ([]domain.ScoutBadge, error)
	// RecordCompletion stores a completion, reporting false when already present
	RecordCompletion(ctx context.Context, c *domain.RequirementCompletion) (bool, error)
	CompleteBadge(ctx context.Context, scoutBadgeID int64, at time.Time) error

	WithTx(dbtx DBTX) AdvancementRepository
}
