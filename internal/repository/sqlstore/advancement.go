package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
)

var _ ports.AdvancementRepository = (*advancementRepository)(nil)

type advancementRepository struct {
	conn
}

// NewAdvancementRepository creates advancement repository / Crée le repository de progression
func NewAdvancementRepository(dbtx ports.DBTX, d Dialect) ports.AdvancementRepository {
	return &advancementRepository{conn{db: dbtx, d: d}}
}

func (r *advancementRepository) WithTx(dbtx ports.DBTX) ports.AdvancementRepository {
	return &advancementRepository{conn{db: dbtx, d: r.d}}
}

// UpsertBadge creates or updates a badge and its requirements / Crée ou met à jour un badge
//
// Requirements missing from b are removed unless a scout already completed them.
func (r *advancementRepository) UpsertBadge(ctx context.Context, b *domain.MeritBadge) error {
	ts := now()
	var id int64
	err := r.scanRow(ctx, `SELECT id FROM merit_badges WHERE code = ?`, []any{b.Code}, &id)
	switch {
	case errors.Is(err, db.ErrNoRecord):
		id, err = r.insert(ctx, `
			INSERT INTO merit_badges (code, name, eagle_required, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`, b.Code, b.Name, b.EagleRequired, b.Version, ts, ts)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := r.exec(ctx, `UPDATE merit_badges SET name = ?, eagle_required = ?, version = ?, updated_at = ? WHERE id = ?`,
			b.Name, b.EagleRequired, b.Version, ts, id); err != nil {
			return err
		}
	}
	b.ID = id

	existing, err := r.requirements(ctx, `badge_id = ?`, id)
	if err != nil {
		return err
	}
	byNumber := make(map[string]int64, len(existing))
	for _, req := range existing {
		byNumber[req.Number] = req.ID
	}

	for i := range b.Requirements {
		req := &b.Requirements[i]
		req.BadgeID = id
		if reqID, ok := byNumber[req.Number]; ok {
			if _, err := r.exec(ctx, `UPDATE badge_requirements SET description = ?, sort_key = ? WHERE id = ?`,
				req.Description, req.SortKey, reqID); err != nil {
				return err
			}
			req.ID = reqID
			delete(byNumber, req.Number)
			continue
		}
		reqID, err := r.insert(ctx, `
			INSERT INTO badge_requirements (badge_id, number, description, sort_key)
			VALUES (?, ?, ?, ?)`, id, req.Number, req.Description, req.SortKey)
		if err != nil {
			return err
		}
		req.ID = reqID
	}

	for _, reqID := range byNumber {
		if _, err := r.exec(ctx, `
			DELETE FROM badge_requirements
			WHERE id = ? AND NOT EXISTS (SELECT 1 FROM requirement_completions WHERE requirement_id = ?)`,
			reqID, reqID); err != nil {
			return err
		}
	}
	return nil
}

func (r *advancementRepository) requirements(ctx context.Context, where string, args ...any) ([]domain.Requirement, error) {
	rows, err := r.query(ctx, `
		SELECT id, badge_id, number, description, sort_key
		FROM badge_requirements WHERE `+where+`
		ORDER BY badge_id, sort_key, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Requirement
	for rows.Next() {
		var req domain.Requirement
		if err := rows.Scan(&req.ID, &req.BadgeID, &req.Number, &req.Description, &req.SortKey); err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, req)
	}
	return out, r.d.TranslateError(rows.Err())
}

// ListBadges lists the catalog with requirements / Liste le catalogue avec exigences
func (r *advancementRepository) ListBadges(ctx context.Context) ([]domain.MeritBadge, error) {
	rows, err := r.query(ctx, `SELECT id, code, name, eagle_required, version FROM merit_badges ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	var badges []domain.MeritBadge
	for rows.Next() {
		var b domain.MeritBadge
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.EagleRequired, &b.Version); err != nil {
			rows.Close()
			return nil, r.d.TranslateError(err)
		}
		badges = append(badges, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.d.TranslateError(err)
	}

	reqs, err := r.requirements(ctx, `1 = 1`)
	if err != nil {
		return nil, err
	}
	byBadge := make(map[int64][]domain.Requirement)
	for _, req := range reqs {
		byBadge[req.BadgeID] = append(byBadge[req.BadgeID], req)
	}
	for i := range badges {
		badges[i].Requirements = byBadge[badges[i].ID]
	}
	return badges, nil
}

func (r *advancementRepository) GetBadgeByCode(ctx context.Context, code string) (*domain.MeritBadge, error) {
	b := &domain.MeritBadge{}
	if err := r.scanRow(ctx, `SELECT id, code, name, eagle_required, version FROM merit_badges WHERE code = ?`,
		[]any{code}, &b.ID, &b.Code, &b.Name, &b.EagleRequired, &b.Version); err != nil {
		return nil, err
	}
	reqs, err := r.requirements(ctx, `badge_id = ?`, b.ID)
	if err != nil {
		return nil, err
	}
	b.Requirements = reqs
	return b, nil
}

func (r *advancementRepository) StartBadge(ctx context.Context, sb *domain.ScoutBadge) error {
	if sb.StartedAt.IsZero() {
		sb.StartedAt = now()
	}
	id, err := r.insert(ctx, `
		INSERT INTO scout_badges (scout_id, badge_id, counselor, started_at)
		VALUES (?, ?, ?, ?)`, sb.ScoutID, sb.BadgeID, sb.Counselor, sb.StartedAt.UTC())
	if err != nil {
		return err
	}
	sb.ID = id
	return nil
}

const scoutBadgeColumns = `sb.id, sb.scout_id, sb.badge_id, b.code, b.name, sb.counselor, sb.started_at, sb.completed_at`

const scoutBadgeFrom = ` FROM scout_badges sb JOIN merit_badges b ON b.id = sb.badge_id`

func scanScoutBadge(scan func(dest ...any) error) (*domain.ScoutBadge, error) {
	sb := &domain.ScoutBadge{}
	if err := scan(&sb.ID, &sb.ScoutID, &sb.BadgeID, &sb.BadgeCode, &sb.BadgeName, &sb.Counselor,
		&sb.StartedAt, &sb.CompletedAt); err != nil {
		return nil, err
	}
	return sb, nil
}

func (r *advancementRepository) GetScoutBadge(ctx context.Context, scoutID, badgeID int64) (*domain.ScoutBadge, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+scoutBadgeColumns+scoutBadgeFrom+`
		WHERE sb.scout_id = ? AND sb.badge_id = ?`), scoutID, badgeID)
	sb, err := scanScoutBadge(row.Scan)
	if err != nil {
		return nil, r.d.TranslateError(err)
	}
	completions, err := r.completions(ctx, `sb.id = ?`, sb.ID)
	if err != nil {
		return nil, err
	}
	sb.Completions = completions
	return sb, nil
}

func (r *advancementRepository) completions(ctx context.Context, where string, args ...any) ([]domain.RequirementCompletion, error) {
	rows, err := r.query(ctx, `
		SELECT rc.scout_badge_id, rc.requirement_id, br.number, rc.completed_at, rc.recorded_by
		FROM requirement_completions rc
		JOIN badge_requirements br ON br.id = rc.requirement_id
		JOIN scout_badges sb ON sb.id = rc.scout_badge_id
		WHERE `+where+`
		ORDER BY rc.scout_badge_id, br.sort_key`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RequirementCompletion
	for rows.Next() {
		var c domain.RequirementCompletion
		if err := rows.Scan(&c.ScoutBadgeID, &c.RequirementID, &c.Number, &c.CompletedAt, &c.RecordedBy); err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, c)
	}
	return out, r.d.TranslateError(rows.Err())
}

// ListScoutBadges returns badges with completions / Retourne les badges avec validations
func (r *advancementRepository) ListScoutBadges(ctx context.Context, scoutID int64) ([]domain.ScoutBadge, error) {
	rows, err := r.query(ctx, `SELECT `+scoutBadgeColumns+scoutBadgeFrom+`
		WHERE sb.scout_id = ? ORDER BY b.name, sb.id`, scoutID)
	if err != nil {
		return nil, err
	}
	var out []domain.ScoutBadge
	for rows.Next() {
		sb, err := scanScoutBadge(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *sb)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.d.TranslateError(err)
	}

	completions, err := r.completions(ctx, `sb.scout_id = ?`, scoutID)
	if err != nil {
		return nil, err
	}
	byBadge := make(map[int64][]domain.RequirementCompletion)
	for _, c := range completions {
		byBadge[c.ScoutBadgeID] = append(byBadge[c.ScoutBadgeID], c)
	}
	for i := range out {
		out[i].Completions = byBadge[out[i].ID]
	}
	return out, nil
}

// RecordCompletion stores a completion, reporting false when already present
func (r *advancementRepository) RecordCompletion(ctx context.Context, c *domain.RequirementCompletion) (bool, error) {
	found, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM requirement_completions WHERE scout_badge_id = ? AND requirement_id = ?)`,
		c.ScoutBadgeID, c.RequirementID)
	if err != nil || found {
		return false, err
	}
	_, err = r.exec(ctx, `
		INSERT INTO requirement_completions (scout_badge_id, requirement_id, completed_at, recorded_by)
		VALUES (?, ?, ?, ?)`, c.ScoutBadgeID, c.RequirementID, c.CompletedAt.UTC(), c.RecordedBy)
	if errors.Is(err, db.ErrDup) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *advancementRepository) CompleteBadge(ctx context.Context, scoutBadgeID int64, at time.Time) error {
	return r.execOne(ctx, `UPDATE scout_badges SET completed_at = ? WHERE id = ? AND completed_at IS NULL`, at.UTC(), scoutBadgeID)
}
