package ports

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ExtensionRepository stores extension tokens and staged syncs / Stocke tokens et synchros
type ExtensionRepository interface {
	CreateToken(ctx context.Context, t *domain.ExtensionToken) error
	GetTokenByHash(ctx context.Context, hash string) (*domain.ExtensionToken, error)
	ListTokens(ctx context.Context, unitID int64) ([]domain.ExtensionToken, error)
	RevokeToken(ctx context.Context, unitID, id int64, at time.Time) error
	TouchToken(ctx context.Context, id int64, at time.Time) error
	PurgeTokens(ctx context.Context, before time.Time) (int64, error)

	CreateSync(ctx context.Context, s *domain.RosterSync) error
	GetSync(ctx context.Context, unitID int64, id string) (*domain.RosterSync, error)
	// MarkSyncApplied flips a pending sync to applied, false when it was not pending
	MarkSyncApplied(ctx context.Context, unitID int64, id string, at time.Time) (bool, error)
	ExpireSyncs(ctx context.Context, now time.Time) (int64, error)

	WithTx(dbtx DBTX) ExtensionRepository
}
