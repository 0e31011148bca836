package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
)

var (
	_ ports.MembershipRepository = (*membershipRepository)(nil)
	_ ports.PermissionRepository = (*membershipRepository)(nil)
)

type membershipRepository struct {
	conn
}

// NewMembershipRepository creates membership repository / Crée le repository des adhésions
func NewMembershipRepository(dbtx ports.DBTX, d Dialect) ports.MembershipRepository {
	return &membershipRepository{conn{db: dbtx, d: d}}
}

// NewPermissionRepository creates permission repository / Crée le repository des permissions
func NewPermissionRepository(dbtx ports.DBTX, d Dialect) ports.PermissionRepository {
	return &membershipRepository{conn{db: dbtx, d: d}}
}

func (r *membershipRepository) WithTx(dbtx ports.DBTX) ports.MembershipRepository {
	return &membershipRepository{conn{db: dbtx, d: r.d}}
}

const membershipColumns = `m.id, m.unit_id, m.profile_id, m.role, m.status, m.created_at, m.updated_at,
	p.email, p.first_name, p.last_name`

func scanMembership(scan func(dest ...any) error) (*domain.Membership, error) {
	m := &domain.Membership{}
	var first, last string
	if err := scan(&m.ID, &m.UnitID, &m.ProfileID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt,
		&m.Email, &first, &last); err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(first + " " + last)
	return m, nil
}

// Upsert creates or reactivates a membership / Crée ou réactive une adhésion
func (r *membershipRepository) Upsert(ctx context.Context, m *domain.Membership) error {
	existing, err := r.Get(ctx, m.UnitID, m.ProfileID)
	switch {
	case err == nil:
		ts := now()
		if err := r.execOne(ctx, `UPDATE memberships SET role = ?, status = ?, updated_at = ? WHERE id = ?`,
			string(m.Role), string(domain.MembershipActive), ts, existing.ID); err != nil {
			return err
		}
		m.ID = existing.ID
		m.Status = domain.MembershipActive
		m.CreatedAt, m.UpdatedAt = existing.CreatedAt, ts
		return nil
	case !errors.Is(err, db.ErrNoRecord):
		return err
	}

	ts := now()
	if m.Status == "" {
		m.Status = domain.MembershipActive
	}
	id, err := r.insert(ctx, `
		INSERT INTO memberships (unit_id, profile_id, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.UnitID, m.ProfileID, string(m.Role), string(m.Status), ts, ts)
	if err != nil {
		return err
	}
	m.ID = id
	m.CreatedAt, m.UpdatedAt = ts, ts
	return nil
}

func (r *membershipRepository) Get(ctx context.Context, unitID, profileID int64) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+membershipColumns+`
		FROM memberships m JOIN profiles p ON p.id = m.profile_id
		WHERE m.unit_id = ? AND m.profile_id = ?`), unitID, profileID)
	m, err := scanMembership(row.Scan)
	return m, r.d.TranslateError(err)
}

func (r *membershipRepository) GetByID(ctx context.Context, unitID, id int64) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+membershipColumns+`
		FROM memberships m JOIN profiles p ON p.id = m.profile_id
		WHERE m.unit_id = ? AND m.id = ?`), unitID, id)
	m, err := scanMembership(row.Scan)
	return m, r.d.TranslateError(err)
}

func (r *membershipRepository) List(ctx context.Context, unitID int64) ([]domain.Membership, error) {
	rows, err := r.query(ctx, `SELECT `+membershipColumns+`
		FROM memberships m JOIN profiles p ON p.id = m.profile_id
		WHERE m.unit_id = ? AND m.status = ? AND p.deleted_at IS NULL
		ORDER BY p.last_name, p.first_name, m.id`, unitID, string(domain.MembershipActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *m)
	}
	return out, r.d.TranslateError(rows.Err())
}

func (r *membershipRepository) UpdateRole(ctx context.Context, unitID, id int64, role domain.Role) error {
	return r.execOne(ctx, `UPDATE memberships SET role = ?, updated_at = ? WHERE unit_id = ? AND id = ?`,
		string(role), now(), unitID, id)
}

func (r *membershipRepository) Deactivate(ctx context.Context, unitID, id int64) error {
	return r.execOne(ctx, `UPDATE memberships SET status = ?, updated_at = ? WHERE unit_id = ? AND id = ?`,
		string(domain.MembershipInactive), now(), unitID, id)
}

// CountActiveAdmins locks the admin rows it counts, so concurrent demotions
// inside transactions queue behind each other and recount.
func (r *membershipRepository) CountActiveAdmins(ctx context.Context, unitID int64) (int, error) {
	rows, err := r.query(ctx, `SELECT id FROM memberships WHERE unit_id = ? AND role = ? AND status = ?`+r.d.ForUpdate(),
		unitID, string(domain.RoleAdmin), string(domain.MembershipActive))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	return n, r.d.TranslateError(rows.Err())
}

func (r *membershipRepository) CreateInvite(ctx context.Context, inv *domain.Invite) error {
	ts := now()
	id, err := r.insert(ctx, `
		INSERT INTO unit_invites (unit_id, email, role, token_hash, expires_at, invited_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.UnitID, inv.Email, string(inv.Role), inv.TokenHash, inv.ExpiresAt.UTC(), inv.InvitedBy, ts)
	if err != nil {
		return err
	}
	inv.ID = id
	inv.CreatedAt = ts
	return nil
}

func (r *membershipRepository) GetInviteByHash(ctx context.Context, tokenHash string) (*domain.Invite, error) {
	inv := &domain.Invite{}
	err := r.scanRow(ctx, `
		SELECT id, unit_id, email, role, token_hash, expires_at, accepted_at, invited_by, created_at
		FROM unit_invites WHERE token_hash = ?`, []any{tokenHash},
		&inv.ID, &inv.UnitID, &inv.Email, &inv.Role, &inv.TokenHash, &inv.ExpiresAt, &inv.AcceptedAt,
		&inv.InvitedBy, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkInviteAccepted stamps acceptance once / Marque l'invitation acceptée une seule fois
func (r *membershipRepository) MarkInviteAccepted(ctx context.Context, id int64, at time.Time) error {
	return r.execOne(ctx, `UPDATE unit_invites SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL`, at.UTC(), id)
}

func (r *membershipRepository) PurgeExpiredInvites(ctx context.Context, before time.Time) (int64, error) {
	return r.execCount(ctx, `DELETE FROM unit_invites WHERE accepted_at IS NULL AND expires_at < ?`, before.UTC())
}

// GetPermissionsForRole retrieves permissions for role / Récupère les permissions du rôle
func (r *membershipRepository) GetPermissionsForRole(ctx context.Context, role domain.Role) ([]domain.Permission, error) {
	rows, err := r.query(ctx, `SELECT permission FROM role_permissions WHERE role = ? ORDER BY permission`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, r.d.TranslateError(err)
		}
		permissions = append(permissions, domain.Permission(perm))
	}
	return permissions, r.d.TranslateError(rows.Err())
}

// MemberHasPermission checks an active member's permission / Vérifie la permission d'un membre actif
func (r *membershipRepository) MemberHasPermission(ctx context.Context, unitID, profileID int64, permission domain.Permission) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM memberships m
			JOIN role_permissions rp ON rp.role = m.role
			WHERE m.unit_id = ? AND m.profile_id = ? AND m.status = ? AND rp.permission = ?
		)`, unitID, profileID, string(domain.MembershipActive), permission.String())
}
