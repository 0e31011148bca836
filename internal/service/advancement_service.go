package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/richblaalid/chuckbox/internal/advancement"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
)

const (
	catalogCachePrefix = "catalog:"
	catalogCacheKey    = catalogCachePrefix + "badges"
)

// BadgeProgress is one badge of a scout's progress report / Badge d'un rapport de progression
type BadgeProgress struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Counselor   string     `json:"counselor,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Completed   int        `json:"completed"`
	Total       int        `json:"total"`
	Numbers     []string   `json:"numbers"` // Display form / Notation affichée
}

// AdvancementService manages the badge catalog and scout progress / Gère catalogue et progression
type AdvancementService struct {
	db      ports.TxBeginner
	repo    ports.AdvancementRepository
	scouts  ports.ScoutRepository
	cache   ports.Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics CacheMetricsRecorder
	now     func() time.Time
}

// NewAdvancementService creates the advancement service; a nil cache reads through.
func NewAdvancementService(
	db ports.TxBeginner,
	repo ports.AdvancementRepository,
	scouts ports.ScoutRepository,
	cache ports.Cache,
	ttl time.Duration,
	metrics CacheMetricsRecorder,
) *AdvancementService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AdvancementService{
		db:      db,
		repo:    repo,
		scouts:  scouts,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

// Catalog / Catalogue

// ImportCatalog upserts badges from a YAML catalog / Importe un catalogue YAML
func (s *AdvancementService) ImportCatalog(ctx context.Context, r io.Reader) (int, error) {
	badges, err := advancement.ParseCatalog(r)
	if err != nil {
		return 0, err
	}
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		for i := range badges {
			if err := repo.UpsertBadge(ctx, &badges[i]); err != nil {
				return repoErr("badge "+badges[i].Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, catalogCachePrefix); err != nil {
			slog.Warn("failed to invalidate catalog cache", "err", err)
		}
	}
	slog.Info("badge catalog imported", "badges", len(badges))
	return len(badges), nil
}

// ListBadges returns the catalog, cached and coalesced / Retourne le catalogue en cache
func (s *AdvancementService) ListBadges(ctx context.Context) ([]domain.MeritBadge, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, catalogCacheKey)
		switch {
		case err == nil:
			var badges []domain.MeritBadge
			if jerr := json.Unmarshal(raw, &badges); jerr == nil {
				s.metrics.RecordCache("hit")
				return badges, nil
			}
		case !errors.Is(err, ports.ErrCacheMiss):
			slog.Warn("catalog cache read failed", "err", err)
		}
		s.metrics.RecordCache("miss")
	}

	v, err, _ := s.group.Do(catalogCacheKey, func() (any, error) {
		badges, err := s.repo.ListBadges(ctx)
		if err != nil {
			return nil, fmt.Errorf("list badges: %w", err)
		}
		for i := range badges {
			advancement.SortRequirements(badges[i].Requirements)
		}
		if s.cache != nil {
			if raw, err := json.Marshal(badges); err == nil {
				if err := s.cache.Set(ctx, catalogCacheKey, raw, s.ttl); err != nil {
					slog.Warn("catalog cache write failed", "err", err)
				}
			}
		}
		return badges, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.MeritBadge), nil
}

// GetBadge returns one badge with sorted requirements / Retourne un badge
func (s *AdvancementService) GetBadge(ctx context.Context, code string) (*domain.MeritBadge, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	badges, err := s.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	for i := range badges {
		if badges[i].Code == code {
			return &badges[i], nil
		}
	}
	return nil, fmt.Errorf("badge %q: %w", code, domain.ErrNotFound)
}

// Progress / Progression

func (s *AdvancementService) checkScout(ctx context.Context, actor *domain.Membership, scoutID int64, perm domain.Permission) error {
	if !actor.Can(perm) {
		return domain.ErrForbidden
	}
	if _, err := s.scouts.GetByID(ctx, actor.UnitID, scoutID); err != nil {
		return repoErr("scout", err)
	}
	return nil
}

// StartBadge opens a badge for a scout; starting twice returns the existing one.
func (s *AdvancementService) StartBadge(ctx context.Context, actor *domain.Membership, scoutID int64, code, counselor string) (*domain.ScoutBadge, error) {
	if err := s.checkScout(ctx, actor, scoutID, domain.PermissionAdvancementWrite); err != nil {
		return nil, err
	}
	badge, err := s.GetBadge(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.startBadge(ctx, s.repo, scoutID, badge, strings.TrimSpace(counselor))
}

func (s *AdvancementService) startBadge(ctx context.Context, repo ports.AdvancementRepository, scoutID int64, badge *domain.MeritBadge, counselor string) (*domain.ScoutBadge, error) {
	existing, err := repo.GetScoutBadge(ctx, scoutID, badge.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNoRecord) {
		return nil, fmt.Errorf("load scout badge: %w", err)
	}

	sb := &domain.ScoutBadge{
		ScoutID:   scoutID,
		BadgeID:   badge.ID,
		BadgeCode: badge.Code,
		BadgeName: badge.Name,
		Counselor: counselor,
		StartedAt: s.now().UTC(),
	}
	if err := repo.StartBadge(ctx, sb); err != nil {
		if errors.Is(err, repository.ErrDup) {
			return repo.GetScoutBadge(ctx, scoutID, badge.ID)
		}
		return nil, repoErr("scout badge", err)
	}
	return sb, nil
}

// RecordRequirement signs off one requirement in either notation / Valide une exigence
//
// The badge is started when needed. Recording twice is not an error; the
// returned bool reports whether a new completion was stored.
func (s *AdvancementService) RecordRequirement(ctx context.Context, actor *domain.Membership, scoutID int64, code, number string, completedAt *time.Time) (*domain.ScoutBadge, bool, error) {
	if err := s.checkScout(ctx, actor, scoutID, domain.PermissionAdvancementWrite); err != nil {
		return nil, false, err
	}
	badge, err := s.GetBadge(ctx, code)
	if err != nil {
		return nil, false, err
	}
	canonical, err := advancement.ToCanonical(number)
	if err != nil {
		return nil, false, err
	}
	var req *domain.Requirement
	for i := range badge.Requirements {
		if badge.Requirements[i].Number == canonical {
			req = &badge.Requirements[i]
			break
		}
	}
	if req == nil {
		return nil, false, fmt.Errorf("requirement %s of %s: %w", number, badge.Code, domain.ErrNotFound)
	}

	at := s.now().UTC()
	if completedAt != nil {
		if completedAt.After(at) {
			return nil, false, invalid("completion date is in the future")
		}
		at = completedAt.UTC()
	}

	var (
		sb      *domain.ScoutBadge
		created bool
	)
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		var err error
		sb, err = s.startBadge(ctx, repo, scoutID, badge, "")
		if err != nil {
			return err
		}
		created, err = repo.RecordCompletion(ctx, &domain.RequirementCompletion{
			ScoutBadgeID:  sb.ID,
			RequirementID: req.ID,
			Number:        req.Number,
			CompletedAt:   at,
			RecordedBy:    actor.ProfileID,
		})
		if err != nil {
			return repoErr("requirement completion", err)
		}
		sb, err = repo.GetScoutBadge(ctx, scoutID, badge.ID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return sb, created, nil
}

// CompleteBadge awards a badge; every requirement must be recorded unless force.
func (s *AdvancementService) CompleteBadge(ctx context.Context, actor *domain.Membership, scoutID int64, code string, force bool) (*domain.ScoutBadge, error) {
	if err := s.checkScout(ctx, actor, scoutID, domain.PermissionAdvancementWrite); err != nil {
		return nil, err
	}
	badge, err := s.GetBadge(ctx, code)
	if err != nil {
		return nil, err
	}
	sb, err := s.repo.GetScoutBadge(ctx, scoutID, badge.ID)
	if err != nil {
		return nil, repoErr("scout badge", err)
	}
	if sb.IsComplete() {
		return nil, fmt.Errorf("%w: badge already completed", domain.ErrConflict)
	}
	if !force {
		if missing := missingRequirements(badge, sb); len(missing) > 0 {
			return nil, invalid("requirements not recorded: %s", strings.Join(missing, ", "))
		}
	}

	at := s.now().UTC()
	if err := s.repo.CompleteBadge(ctx, sb.ID, at); err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, fmt.Errorf("%w: badge already completed", domain.ErrConflict)
		}
		return nil, fmt.Errorf("complete badge: %w", err)
	}
	sb.CompletedAt = &at
	slog.Info("merit badge completed", "unit_id", actor.UnitID, "scout_id", scoutID, "badge", badge.Code, "forced", force)
	return sb, nil
}

// missingRequirements lists unrecorded requirements in display form.
func missingRequirements(badge *domain.MeritBadge, sb *domain.ScoutBadge) []string {
	done := make(map[int64]bool, len(sb.Completions))
	for _, c := range sb.Completions {
		done[c.RequirementID] = true
	}
	var missing []string
	for _, r := range badge.Requirements {
		if !done[r.ID] {
			missing = append(missing, displayNumber(r.Number))
		}
	}
	return missing
}

func displayNumber(canonical string) string {
	d, err := advancement.ToDisplay(canonical)
	if err != nil {
		return canonical
	}
	return d
}

// ScoutProgress reports a scout's badges / Rapporte les badges d'un scout
func (s *AdvancementService) ScoutProgress(ctx context.Context, actor *domain.Membership, scoutID int64) ([]BadgeProgress, error) {
	if err := s.checkScout(ctx, actor, scoutID, domain.PermissionAdvancementRead); err != nil {
		return nil, err
	}
	started, err := s.repo.ListScoutBadges(ctx, scoutID)
	if err != nil {
		return nil, fmt.Errorf("list scout badges: %w", err)
	}
	catalog, err := s.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	totals := make(map[int64]int, len(catalog))
	for _, b := range catalog {
		totals[b.ID] = len(b.Requirements)
	}

	out := make([]BadgeProgress, 0, len(started))
	for _, sb := range started {
		p := BadgeProgress{
			Code:        sb.BadgeCode,
			Name:        sb.BadgeName,
			Counselor:   sb.Counselor,
			StartedAt:   sb.StartedAt,
			CompletedAt: sb.CompletedAt,
			Completed:   len(sb.Completions),
			Total:       totals[sb.BadgeID],
			Numbers:     make([]string, 0, len(sb.Completions)),
		}
		for _, c := range sb.Completions {
			p.Numbers = append(p.Numbers, displayNumber(c.Number))
		}
		out = append(out, p)
	}
	return out, nil
}
