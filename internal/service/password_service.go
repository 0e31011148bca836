package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// resetTokenTTL is how long a password reset link stays valid
const resetTokenTTL = time.Hour

// PasswordService handles password operations / Gère les opérations de mot de passe
type PasswordService struct {
	profiles     ports.ProfileReader
	passwordRepo ports.PasswordResetRepository
	refreshStore ports.RefreshTokenStore
	mailer       *Mailer
	conf         *config.Config
	delay        time.Duration
}

// NewPasswordService creates a new password management service instance
func NewPasswordService(
	repo ports.ProfileRepository,
	refreshStore ports.RefreshTokenStore,
	mailer *Mailer,
	conf *config.Config,
) *PasswordService {
	return &PasswordService{
		profiles:     repo,
		passwordRepo: repo,
		refreshStore: refreshStore,
		mailer:       mailer,
		conf:         conf,
		delay:        timingDelay,
	}
}

// RequestPasswordReset initiates password reset (timing-safe) / Démarre la réinitialisation du mot de passe (sécurisé)
func (s *PasswordService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		time.Sleep(s.delay)
		return nil
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		time.Sleep(s.delay)
		return nil
	}

	// A live link was already sent
	if profile.PasswordResetToken.Valid && profile.PasswordResetExpiresAt.Valid && time.Now().Before(profile.PasswordResetExpiresAt.Time) {
		return nil
	}

	token := uuid.New().String()
	if err := s.passwordRepo.SetPasswordResetToken(ctx, email, token, time.Now().Add(resetTokenTTL)); err != nil {
		slog.Error("failed to set password reset token", "email", email, "err", err)
		return nil
	}

	s.mailer.SendAsync(TemplatePasswordReset, profile.Email, passwordResetEmail{
		Email:    profile.Email,
		ResetURL: fmt.Sprintf("%s/reset-password?token=%s", s.conf.Server.FrontendURL, url.QueryEscape(token)),
	})
	return nil
}

// ResetPassword completes password reset using token / Finalise la réinitialisation du mot de passe via token
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return invalid("reset token is required")
	}
	if !isStrongPassword(newPassword) {
		return invalid(passwordRules)
	}

	profile, err := s.passwordRepo.GetByPasswordResetToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.conf.Security.BcryptCost)
	if err != nil {
		slog.Error("failed to hash password", "err", err)
		return fmt.Errorf("failed to process password")
	}

	if err := s.passwordRepo.UpdatePassword(ctx, profile.ID, string(hash)); err != nil {
		slog.Error("failed to update password", "profile_id", profile.ID, "err", err)
		return fmt.Errorf("failed to update password")
	}

	if err := s.passwordRepo.ClearPasswordResetToken(ctx, profile.ID); err != nil {
		slog.Error("failed to clear password reset token", "profile_id", profile.ID, "err", err)
	}

	// Force re-login everywhere
	if err := s.refreshStore.RevokeAllForProfile(ctx, profile.ID); err != nil {
		slog.Error("failed to revoke refresh tokens after password reset", "profile_id", profile.ID, "err", err)
	}
	return nil
}

// ChangePassword changes a password after checking the current one / Change le mot de passe après vérification
func (s *PasswordService) ChangePassword(ctx context.Context, profileID int64, currentPassword, newPassword string) error {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return ErrProfileNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(currentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials)
	}
	if !isStrongPassword(newPassword) {
		return invalid(passwordRules)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(newPassword)); err == nil {
		return invalid("new password must be different from current password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.conf.Security.BcryptCost)
	if err != nil {
		slog.Error("failed to hash new password", "err", err)
		return fmt.Errorf("failed to process password")
	}

	if err := s.passwordRepo.UpdatePassword(ctx, profileID, string(hash)); err != nil {
		slog.Error("failed to update password", "profile_id", profileID, "err", err)
		return fmt.Errorf("failed to update password")
	}

	if err := s.refreshStore.RevokeAllForProfile(ctx, profileID); err != nil {
		slog.Error("failed to revoke refresh tokens after password change", "profile_id", profileID, "err", err)
	}
	return nil
}
