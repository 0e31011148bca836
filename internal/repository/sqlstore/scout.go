package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.ScoutRepository = (*scoutRepository)(nil)

type scoutRepository struct {
	conn
}

// NewScoutRepository creates scout repository / Crée le repository des scouts
func NewScoutRepository(dbtx ports.DBTX, d Dialect) ports.ScoutRepository {
	return &scoutRepository{conn{db: dbtx, d: d}}
}

func (r *scoutRepository) WithTx(dbtx ports.DBTX) ports.ScoutRepository {
	return &scoutRepository{conn{db: dbtx, d: r.d}}
}

const scoutColumns = `s.id, s.unit_id, s.patrol_id, p.name, s.bsa_member_id, s.first_name, s.last_name,
	s.nickname, s.birth_date, s.scout_rank, s.scout_position, s.status, s.created_at, s.updated_at, s.deleted_at`

const scoutFrom = ` FROM scouts s LEFT JOIN patrols p ON p.id = s.patrol_id`

func scanScout(scan func(dest ...any) error) (*domain.Scout, error) {
	s := &domain.Scout{}
	var patrol, bsaID sql.NullString
	err := scan(&s.ID, &s.UnitID, &s.PatrolID, &patrol, &bsaID, &s.FirstName, &s.LastName,
		&s.Nickname, &s.BirthDate, &s.Rank, &s.Position, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err != nil {
		return nil, err
	}
	s.PatrolName = patrol.String
	s.BSAMemberID = bsaID.String
	return s, nil
}

func (r *scoutRepository) Create(ctx context.Context, s *domain.Scout) error {
	ts := now()
	if s.Status == "" {
		s.Status = domain.ScoutActive
	}
	id, err := r.insert(ctx, `
		INSERT INTO scouts (unit_id, patrol_id, bsa_member_id, first_name, last_name, nickname, birth_date,
			scout_rank, scout_position, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UnitID, s.PatrolID, nullString(s.BSAMemberID), s.FirstName, s.LastName, s.Nickname, utc(s.BirthDate),
		s.Rank, s.Position, string(s.Status), ts, ts)
	if err != nil {
		return err
	}
	s.ID = id
	s.CreatedAt, s.UpdatedAt = ts, ts
	return nil
}

func (r *scoutRepository) Update(ctx context.Context, s *domain.Scout) error {
	ts := now()
	if err := r.execOne(ctx, `
		UPDATE scouts
		SET patrol_id = ?, bsa_member_id = ?, first_name = ?, last_name = ?, nickname = ?, birth_date = ?,
			scout_rank = ?, scout_position = ?, updated_at = ?
		WHERE unit_id = ? AND id = ?`,
		s.PatrolID, nullString(s.BSAMemberID), s.FirstName, s.LastName, s.Nickname, utc(s.BirthDate),
		s.Rank, s.Position, ts, s.UnitID, s.ID); err != nil {
		return err
	}
	s.UpdatedAt = ts
	return nil
}

// SetStatus activates or soft deletes a scout / Active ou désactive un scout
func (r *scoutRepository) SetStatus(ctx context.Context, unitID, id int64, status domain.ScoutStatus) error {
	ts := now()
	var deletedAt any
	if status == domain.ScoutInactive {
		deletedAt = ts
	}
	return r.execOne(ctx, `UPDATE scouts SET status = ?, deleted_at = ?, updated_at = ? WHERE unit_id = ? AND id = ?`,
		string(status), deletedAt, ts, unitID, id)
}

func (r *scoutRepository) GetByID(ctx context.Context, unitID, id int64) (*domain.Scout, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+scoutColumns+scoutFrom+`
		WHERE s.unit_id = ? AND s.id = ?`), unitID, id)
	s, err := scanScout(row.Scan)
	return s, r.d.TranslateError(err)
}

func (r *scoutRepository) List(ctx context.Context, unitID int64, filter ports.ScoutFilter) ([]domain.Scout, error) {
	where := []string{"s.unit_id = ?"}
	args := []any{unitID}
	if !filter.IncludeInactive {
		where = append(where, "s.status = ?")
		args = append(args, string(domain.ScoutActive))
	}
	if filter.PatrolID != nil {
		where = append(where, "s.patrol_id = ?")
		args = append(args, *filter.PatrolID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return nil, nil
		}
		where = append(where, "s.id IN ("+placeholders(len(filter.IDs))+")")
		args = append(args, int64Args(filter.IDs)...)
	}

	rows, err := r.query(ctx, `SELECT `+scoutColumns+scoutFrom+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY s.last_name, s.first_name, s.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Scout
	for rows.Next() {
		s, err := scanScout(rows.Scan)
		if err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *s)
	}
	return out, r.d.TranslateError(rows.Err())
}

func (r *scoutRepository) CreatePatrol(ctx context.Context, p *domain.Patrol) error {
	ts := now()
	id, err := r.insert(ctx, `INSERT INTO patrols (unit_id, name, created_at) VALUES (?, ?, ?)`, p.UnitID, p.Name, ts)
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = ts
	return nil
}

func (r *scoutRepository) ListPatrols(ctx context.Context, unitID int64) ([]domain.Patrol, error) {
	rows, err := r.query(ctx, `SELECT id, unit_id, name, created_at FROM patrols WHERE unit_id = ? ORDER BY name, id`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Patrol
	for rows.Next() {
		var p domain.Patrol
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Name, &p.CreatedAt); err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, p)
	}
	return out, r.d.TranslateError(rows.Err())
}

// DeletePatrol removes a patrol and clears it from scouts / Supprime une patrouille
func (r *scoutRepository) DeletePatrol(ctx context.Context, unitID, id int64) error {
	if _, err := r.exec(ctx, `UPDATE scouts SET patrol_id = NULL, updated_at = ? WHERE unit_id = ? AND patrol_id = ?`,
		now(), unitID, id); err != nil {
		return err
	}
	return r.execOne(ctx, `DELETE FROM patrols WHERE unit_id = ? AND id = ?`, unitID, id)
}

func (r *scoutRepository) AddGuardian(ctx context.Context, g *domain.Guardian) error {
	_, err := r.exec(ctx, `INSERT INTO scout_guardians (scout_id, profile_id, relationship) VALUES (?, ?, ?)`,
		g.ScoutID, g.ProfileID, g.Relationship)
	return err
}

func (r *scoutRepository) ListGuardians(ctx context.Context, scoutIDs []int64) ([]domain.Guardian, error) {
	if len(scoutIDs) == 0 {
		return nil, nil
	}
	rows, err := r.query(ctx, `
		SELECT g.scout_id, g.profile_id, g.relationship, p.email, p.first_name, p.last_name
		FROM scout_guardians g
		JOIN profiles p ON p.id = g.profile_id
		WHERE g.scout_id IN (`+placeholders(len(scoutIDs))+`) AND p.deleted_at IS NULL
		ORDER BY g.scout_id, g.profile_id`, int64Args(scoutIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Guardian
	for rows.Next() {
		var g domain.Guardian
		var first, last string
		if err := rows.Scan(&g.ScoutID, &g.ProfileID, &g.Relationship, &g.Email, &first, &last); err != nil {
			return nil, r.d.TranslateError(err)
		}
		g.Name = strings.TrimSpace(first + " " + last)
		out = append(out, g)
	}
	return out, r.d.TranslateError(rows.Err())
}

func (r *scoutRepository) IsGuardian(ctx context.Context, scoutID, profileID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM scout_guardians WHERE scout_id = ? AND profile_id = ?)`,
		scoutID, profileID)
}

func (r *scoutRepository) GuardedScoutIDs(ctx context.Context, unitID, profileID int64) ([]int64, error) {
	rows, err := r.query(ctx, `
		SELECT s.id FROM scouts s
		JOIN scout_guardians g ON g.scout_id = s.id
		WHERE s.unit_id = ? AND g.profile_id = ?
		ORDER BY s.id`, unitID, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, r.d.TranslateError(err)
		}
		ids = append(ids, id)
	}
	return ids, r.d.TranslateError(rows.Err())
}
