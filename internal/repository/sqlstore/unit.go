package sqlstore

import (
	"context"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.UnitRepository = (*unitRepository)(nil)

type unitRepository struct {
	conn
}

// NewUnitRepository creates unit repository / Crée le repository des unités
func NewUnitRepository(dbtx ports.DBTX, d Dialect) ports.UnitRepository {
	return &unitRepository{conn{db: dbtx, d: d}}
}

func (r *unitRepository) WithTx(dbtx ports.DBTX) ports.UnitRepository {
	return &unitRepository{conn{db: dbtx, d: r.d}}
}

const unitColumns = `u.id, u.name, u.unit_type, u.unit_number, u.council, u.square_location_id,
	u.fee_percent_bps, u.fee_fixed_cents, u.fee_pass_to_payer, u.created_at, u.updated_at`

func unitDest(u *domain.Unit) []any {
	return []any{
		&u.ID, &u.Name, &u.Type, &u.Number, &u.Council, &u.SquareLocationID,
		&u.Fees.PercentBps, &u.Fees.FixedCents, &u.Fees.PassToPayer, &u.CreatedAt, &u.UpdatedAt,
	}
}

func (r *unitRepository) Create(ctx context.Context, u *domain.Unit) error {
	ts := now()
	id, err := r.insert(ctx, `
		INSERT INTO units (name, unit_type, unit_number, council, square_location_id,
			fee_percent_bps, fee_fixed_cents, fee_pass_to_payer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, string(u.Type), u.Number, u.Council, u.SquareLocationID,
		u.Fees.PercentBps, u.Fees.FixedCents, u.Fees.PassToPayer, ts, ts,
	)
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}

func (r *unitRepository) GetByID(ctx context.Context, id int64) (*domain.Unit, error) {
	u := &domain.Unit{}
	err := r.scanRow(ctx, `SELECT `+unitColumns+` FROM units u WHERE u.id = ? AND u.deleted_at IS NULL`,
		[]any{id}, unitDest(u)...)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListForProfile lists units with an active membership / Liste les unités d'un profil
func (r *unitRepository) ListForProfile(ctx context.Context, profileID int64) ([]ports.UnitMembership, error) {
	rows, err := r.query(ctx, `
		SELECT `+unitColumns+`, m.role
		FROM units u
		JOIN memberships m ON m.unit_id = u.id
		WHERE m.profile_id = ? AND m.status = ? AND u.deleted_at IS NULL
		ORDER BY u.name, u.id`, profileID, string(domain.MembershipActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.UnitMembership
	for rows.Next() {
		var um ports.UnitMembership
		if err := rows.Scan(append(unitDest(&um.Unit), &um.Role)...); err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, um)
	}
	return out, r.d.TranslateError(rows.Err())
}

// UpdateSettings stores fees and Square location / Enregistre frais et emplacement Square
func (r *unitRepository) UpdateSettings(ctx context.Context, unitID int64, fees domain.FeeSettings, squareLocationID string) error {
	return r.execOne(ctx, `
		UPDATE units
		SET fee_percent_bps = ?, fee_fixed_cents = ?, fee_pass_to_payer = ?, square_location_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		fees.PercentBps, fees.FixedCents, fees.PassToPayer, squareLocationID, now(), unitID,
	)
}
