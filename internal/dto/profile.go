package dto

import (
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ProfileResponse is the public view of a profile / Vue publique d'un profil
type ProfileResponse struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	SystemRole    string    `json:"system_role"`
	EmailVerified bool      `json:"email_verified"`
	Locked        bool      `json:"locked,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProfileToDTO converts a profile, never exposing credentials / Convertit un profil sans ses secrets
func ProfileToDTO(p *domain.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:            p.ID,
		Email:         p.Email,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Phone:         p.Phone,
		SystemRole:    string(p.SystemRole),
		EmailVerified: p.EmailVerified,
		Locked:        p.IsLocked(),
		CreatedAt:     p.CreatedAt,
	}
}

// ProfilesToDTO converts a page of profiles / Convertit une page de profils
func ProfilesToDTO(profiles []*domain.Profile) []*ProfileResponse {
	out := make([]*ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, ProfileToDTO(p))
	}
	return out
}

// LoginRequest is the login form / Formulaire de connexion
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the sign-up form / Formulaire d'inscription
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateProfileRequest edits contact details / Modifie les coordonnées
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ChangePasswordRequest is DTO for an authenticated password change / DTO du changement de mot de passe
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// EmailRequest carries a single email address / Transporte une adresse email
type EmailRequest struct {
	Email string `json:"email"`
}

// PasswordResetDTO is DTO for password reset completion / Est le DTO pour terminer la réinitialisation
type PasswordResetDTO struct {
	Token       string `json:"token"`        // Password reset token / Token de réinitialisation
	NewPassword string `json:"new_password"` // New password / Nouveau mot de passe
}

// RefreshRequest carries a refresh token when no cookie is sent / Token de rafraîchissement hors cookie
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SystemRoleRequest changes a profile's installation role / Change le rôle système d'un profil
type SystemRoleRequest struct {
	Role string `json:"role"`
}

// Pagination describes one page of a list / Décrit une page d'une liste
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count / Calcule le nombre de pages
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// MessageResponse is a plain acknowledgement / Simple accusé de réception
type MessageResponse struct {
	Message string `json:"message"`
}
