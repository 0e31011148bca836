package ports

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ProfileReader reads profile data / Lit les données des profils
type ProfileReader interface {
	// GetByID retrieves profile by unique ID / Récupère le profil par ID unique
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)

	// GetByEmail retrieves profile by email / Récupère le profil par email
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)

	// List retrieves paginated profiles / Récupère les profils paginés
	List(ctx context.Context, offset, limit int) ([]*domain.Profile, int, error)

	// Count returns total profile count / Retourne le nombre total de profils
	Count(ctx context.Context) (int, error)
}

// ProfileWriter creates, updates and deletes profiles / Crée, modifie et supprime les profils
type ProfileWriter interface {
	// Create inserts a profile; the first one becomes system admin / Insère un profil, le premier devient admin
	Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error)

	// UpdateDetails changes name and phone / Change le nom et le téléphone
	UpdateDetails(ctx context.Context, p *domain.Profile) error

	// Delete soft deletes profile by ID / Supprime logiquement le profil
	Delete(ctx context.Context, id int64) error
}

// EmailVerificationRepository manages email verification / Gère la vérification des emails
type EmailVerificationRepository interface {
	// UpdateDBSendEmail updates verification token and expiration / Met à jour le token et l'expiration
	UpdateDBSendEmail(ctx context.Context, token string, expiresAt time.Time, id int64) error

	// UpdateDBVerify marks email as verified / Marque l'email comme vérifiée
	UpdateDBVerify(ctx context.Context, token string) error
}

// AccountSecurityRepository manages account security / Gère la sécurité des comptes
type AccountSecurityRepository interface {
	// IncrementFailedAttempts increments failed login counter / Incrémente le compteur d'échecs
	IncrementFailedAttempts(ctx context.Context, profileID int64) error

	// ResetFailedAttempts resets failed attempt counter / Réinitialise le compteur d'échecs
	ResetFailedAttempts(ctx context.Context, profileID int64) error

	// LockAccount locks account until timestamp / Verrouille le compte jusqu'à l'heure
	LockAccount(ctx context.Context, profileID int64, until time.Time) error

	// WithTx returns repository with transaction context / Retourne le référentiel avec transaction
	WithTx(dbtx DBTX) AccountSecurityRepository
}

// SystemRoleRepository manages installation roles / Gère les rôles système
type SystemRoleRepository interface {
	// UpdateSystemRole changes profile system role / Change le rôle système du profil
	UpdateSystemRole(ctx context.Context, profileID int64, role domain.SystemRole) error
}

// PasswordResetRepository manages password resets / Gère les réinitialisations de mot de passe
type PasswordResetRepository interface {
	// SetPasswordResetToken stores reset token and expiration / Stocke le token et l'expiration
	SetPasswordResetToken(ctx context.Context, email string, token string, expiresAt time.Time) error

	// GetByPasswordResetToken retrieves profile by reset token / Récupère le profil par token
	GetByPasswordResetToken(ctx context.Context, token string) (*domain.Profile, error)

	// UpdatePassword updates password hash / Met à jour le hash du mot de passe
	UpdatePassword(ctx context.Context, profileID int64, hashedPassword string) error

	// ClearPasswordResetToken clears reset token / Efface le token de réinitialisation
	ClearPasswordResetToken(ctx context.Context, profileID int64) error
}

// ProfileRepository is the composite of all profile operations / Interface composite des profils
type ProfileRepository interface {
	ProfileReader
	ProfileWriter
	EmailVerificationRepository
	AccountSecurityRepository
	SystemRoleRepository
	PasswordResetRepository
}
