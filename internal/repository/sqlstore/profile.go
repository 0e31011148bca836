package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
)

var _ ports.ProfileRepository = (*profileRepository)(nil)

// profileRepository implements ProfileRepository / Implémente ProfileRepository
type profileRepository struct {
	conn
}

// NewProfileRepository creates profile repository / Crée le repository des profils
func NewProfileRepository(dbtx ports.DBTX, d Dialect) ports.ProfileRepository {
	return &profileRepository{conn{db: dbtx, d: d}}
}

// WithTx returns repository with transaction / Retourne le repository avec transaction
func (r *profileRepository) WithTx(dbtx ports.DBTX) ports.AccountSecurityRepository {
	return &profileRepository{conn{db: dbtx, d: r.d}}
}

const profileColumns = `id, email, password, first_name, last_name, phone, system_role,
	email_verified, failed_login_attempts, locked_until, created_at, updated_at`

func scanProfile(scan func(dest ...any) error) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := scan(
		&p.ID,
		&p.Email,
		&p.Password,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.SystemRole,
		&p.EmailVerified,
		&p.FailedLoginAttempts,
		&p.LockedUntil,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts new profile; the first one becomes system admin / Insère un profil, le premier devient admin
func (r *profileRepository) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	role := domain.SystemRoleUser
	if count == 0 {
		role = domain.SystemRoleAdmin
	}

	ts := now()
	id, err := r.insert(ctx, `
		INSERT INTO profiles (email, password, first_name, last_name, phone, system_role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Email, p.Password, p.FirstName, p.LastName, p.Phone, string(role), ts, ts,
	)
	if err != nil {
		if errors.Is(err, db.ErrDup) {
			return nil, db.ErrDuplicateEmail
		}
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves profile by ID / Récupère le profil par ID
func (r *profileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+profileColumns+`
		FROM profiles WHERE id = ? AND deleted_at IS NULL`), id)
	p, err := scanProfile(row.Scan)
	return p, r.d.TranslateError(err)
}

// GetByEmail retrieves profile by email / Récupère le profil par email
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+profileColumns+`
		FROM profiles WHERE email = ? AND deleted_at IS NULL`), email)
	p, err := scanProfile(row.Scan)
	return p, r.d.TranslateError(err)
}

// List retrieves paginated profiles / Récupère les profils paginés
func (r *profileRepository) List(ctx context.Context, offset, limit int) ([]*domain.Profile, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.query(ctx, `SELECT `+profileColumns+`
		FROM profiles
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, 0, r.d.TranslateError(err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.d.TranslateError(err)
	}

	return profiles, total, nil
}

// Count returns active profile count / Retourne le nombre de profils actifs
func (r *profileRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.scanRow(ctx, `SELECT COUNT(*) FROM profiles WHERE deleted_at IS NULL`, nil, &count)
	return count, err
}

// UpdateDetails changes name and phone / Change le nom et le téléphone
func (r *profileRepository) UpdateDetails(ctx context.Context, p *domain.Profile) error {
	return r.execOne(ctx, `
		UPDATE profiles SET first_name = ?, last_name = ?, phone = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		p.FirstName, p.LastName, p.Phone, now(), p.ID,
	)
}

// Delete soft deletes profile by ID / Supprime logiquement le profil
func (r *profileRepository) Delete(ctx context.Context, id int64) error {
	ts := now()
	return r.execOne(ctx, `UPDATE profiles SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, ts, id)
}

// UpdateDBSendEmail updates verification token / Met à jour le token de vérification
func (r *profileRepository) UpdateDBSendEmail(ctx context.Context, token string, expiresAt time.Time, id int64) error {
	_, err := r.exec(ctx, `
		UPDATE profiles
		SET verification_token = ?, verification_expires_at = ?
		WHERE id = ?`, token, expiresAt.UTC(), id)
	return err
}

// UpdateDBVerify marks email as verified / Marque l'email comme vérifiée
func (r *profileRepository) UpdateDBVerify(ctx context.Context, token string) error {
	return r.execOne(ctx, `
		UPDATE profiles
		SET email_verified = TRUE, verification_token = NULL, verification_expires_at = NULL
		WHERE verification_token = ? AND verification_expires_at > ?`, token, now())
}

// IncrementFailedAttempts increments failed login attempts / Incrémente les tentatives échouées
func (r *profileRepository) IncrementFailedAttempts(ctx context.Context, profileID int64) error {
	_, err := r.exec(ctx, `UPDATE profiles SET failed_login_attempts = failed_login_attempts + 1 WHERE id = ?`, profileID)
	return err
}

// ResetFailedAttempts resets failed login attempts / Réinitialise les tentatives échouées
func (r *profileRepository) ResetFailedAttempts(ctx context.Context, profileID int64) error {
	_, err := r.exec(ctx, `UPDATE profiles SET failed_login_attempts = 0, locked_until = NULL WHERE id = ?`, profileID)
	return err
}

// LockAccount locks profile until timestamp / Verrouille le compte
func (r *profileRepository) LockAccount(ctx context.Context, profileID int64, until time.Time) error {
	_, err := r.exec(ctx, `UPDATE profiles SET locked_until = ? WHERE id = ?`, until.UTC(), profileID)
	return err
}

// UpdateSystemRole changes profile system role / Change le rôle système
func (r *profileRepository) UpdateSystemRole(ctx context.Context, profileID int64, role domain.SystemRole) error {
	return r.execOne(ctx, `UPDATE profiles SET system_role = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		string(role), now(), profileID)
}

// SetPasswordResetToken stores password reset token / Stocke le token de réinitialisation
func (r *profileRepository) SetPasswordResetToken(ctx context.Context, email string, token string, expiresAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE profiles
		SET password_reset_token = ?, password_reset_expires_at = ?
		WHERE email = ? AND deleted_at IS NULL`, token, expiresAt.UTC(), email)
}

// GetByPasswordResetToken retrieves profile by unexpired reset token / Récupère le profil par token valide
func (r *profileRepository) GetByPasswordResetToken(ctx context.Context, token string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+profileColumns+`, password_reset_token, password_reset_expires_at
		FROM profiles
		WHERE password_reset_token = ?
		  AND password_reset_expires_at > ?
		  AND deleted_at IS NULL`), token, now())

	var resetToken sql.NullString
	var resetExpires sql.NullTime
	p, err := scanProfile(func(dest ...any) error {
		return row.Scan(append(dest, &resetToken, &resetExpires)...)
	})
	if err != nil {
		return nil, r.d.TranslateError(err)
	}
	p.PasswordResetToken = resetToken
	p.PasswordResetExpiresAt = resetExpires
	return p, nil
}

// UpdatePassword updates password hash / Met à jour le mot de passe
func (r *profileRepository) UpdatePassword(ctx context.Context, profileID int64, hashedPassword string) error {
	return r.execOne(ctx, `
		UPDATE profiles
		SET password = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, hashedPassword, now(), profileID)
}

// ClearPasswordResetToken clears password reset token / Efface le token de réinitialisation
func (r *profileRepository) ClearPasswordResetToken(ctx context.Context, profileID int64) error {
	_, err := r.exec(ctx, `
		UPDATE profiles
		SET password_reset_token = NULL,
		    password_reset_expires_at = NULL,
		    updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now(), profileID)
	return err
}
