package domain

import (
	"database/sql"
	"strings"
	"time"
)

// SystemRole is a profile's application-wide role / Rôle global d'un profil
type SystemRole string

const (
	SystemRoleUser  SystemRole = "user"  // Default role for new profiles / Rôle par défaut
	SystemRoleAdmin SystemRole = "admin" // Operates the whole installation / Administre l'installation
)

// IsValid checks if system role is valid / Vérifie si le rôle système est valide
func (r SystemRole) IsValid() bool {
	return r == SystemRoleUser || r == SystemRoleAdmin
}

// Profile is a person who can sign in / Personne pouvant se connecter
type Profile struct {
	BaseModel
	ID                     int64
	Email                  string
	Password               string // Hashed password / Mot de passe haché
	FirstName              string
	LastName               string
	Phone                  string
	SystemRole             SystemRole
	EmailVerified          bool
	FailedLoginAttempts    int        // Failed login counter / Compteur d'échecs de connexion
	LockedUntil            *time.Time // Account lock expiry / Expiration du verrouillage du compte
	PasswordResetToken     sql.NullString
	PasswordResetExpiresAt sql.NullTime
}

// IsLocked checks if account is locked / Vérifie si le compte est verrouillé
func (p *Profile) IsLocked() bool {
	if p.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*p.LockedUntil)
}

// IsSystemAdmin checks installation-wide admin privileges / Vérifie les privilèges admin globaux
func (p *Profile) IsSystemAdmin() bool {
	return p.SystemRole == SystemRoleAdmin
}

// FullName joins first and last name / Concatène prénom et nom
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// RefreshToken represents refresh token entity / Représente l'entité refresh token
type RefreshToken struct {
	Token     string // Hashed token value / Valeur du token hachée
	ProfileID int64
	IssueAt   time.Time
	ExpiresAt time.Time
	IsRevoked bool
	IPHash    string // SHA-256 hash of client IP / Hash SHA-256 de l'IP client
	UAHash    string // SHA-256 hash of User-Agent / Hash SHA-256 du User-Agent
}

// IsTokenExpired checks if token expired / Vérifie si le token est expiré
func (rt *RefreshToken) IsTokenExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsTokenValid checks if token is valid / Vérifie si le token est valide
func (rt *RefreshToken) IsTokenValid() bool {
	return !rt.IsRevoked && !rt.IsTokenExpired()
}
