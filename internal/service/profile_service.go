package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Registration is the sign-up form / Formulaire d'inscription
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileService handles profile management operations / Gère les opérations sur les profils
type ProfileService struct {
	reader       ports.ProfileReader
	writer       ports.ProfileWriter
	roleRepo     ports.SystemRoleRepository
	refreshStore ports.RefreshTokenStore
	verification *VerificationService
	conf         *config.Config
	metrics      ProfileMetricsRecorder
}

// NewProfileService creates profile management service instance / Crée le service de gestion des profils
func NewProfileService(
	repo ports.ProfileRepository,
	refreshStore ports.RefreshTokenStore,
	verification *VerificationService,
	conf *config.Config,
	metrics ProfileMetricsRecorder,
) *ProfileService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ProfileService{
		reader:       repo,
		writer:       repo,
		roleRepo:     repo,
		refreshStore: refreshStore,
		verification: verification,
		conf:         conf,
		metrics:      metrics,
	}
}

// Register creates a profile and sends the verification email.
// A duplicate email returns (nil, nil) so callers answer exactly as on success.
func (s *ProfileService) Register(ctx context.Context, in Registration) (*domain.Profile, error) {
	email := normalizeEmail(in.Email)
	if !isValidEmail(email) {
		return nil, invalid("invalid email format")
	}
	if !isStrongPassword(in.Password) {
		return nil, invalid(passwordRules)
	}
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return nil, invalid("first and last name are required")
	}
	if len(first) > 100 || len(last) > 100 {
		return nil, invalid("names are limited to 100 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.conf.Security.BcryptCost)
	if err != nil {
		slog.Error("failed to hash password during registration", "err", err)
		return nil, errors.New("failed to process password")
	}

	profile, err := s.writer.Create(ctx, &domain.Profile{
		Email:     email,
		Password:  string(hash),
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDup) {
			slog.Info("registration attempted for existing email")
			return nil, nil
		}
		slog.Error("failed to create profile", "err", err)
		return nil, errors.New("failed to create account")
	}
	s.metrics.RecordRegistration()

	if s.verification != nil {
		if err := s.verification.SendVerificationEmail(ctx, profile); err != nil {
			slog.Error("failed to send verification email", "profile_id", profile.ID, "err", err)
		}
	}
	return profile, nil
}

// GetProfile retrieves a profile by ID / Récupère un profil par son ID
func (s *ProfileService) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	profile, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// UpdateDetails changes a profile's name and phone / Met à jour nom et téléphone
func (s *ProfileService) UpdateDetails(ctx context.Context, id int64, firstName, lastName, phone string) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	first, last := strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if first == "" || last == "" {
		return nil, invalid("first and last name are required")
	}
	profile.FirstName, profile.LastName, profile.Phone = first, last, strings.TrimSpace(phone)
	if err := s.writer.UpdateDetails(ctx, profile); err != nil {
		return nil, repoErr("profile", err)
	}
	return profile, nil
}

// ListProfiles retrieves paginated profiles / Récupère les profils paginés
func (s *ProfileService) ListProfiles(ctx context.Context, offset, limit int) ([]*domain.Profile, int, error) {
	profiles, total, err := s.reader.List(ctx, offset, limit)
	if err != nil {
		slog.Error("failed to list profiles", "err", err, "offset", offset, "limit", limit)
		return nil, 0, errors.New("failed to retrieve profiles")
	}
	return profiles, total, nil
}

// DeleteProfile soft deletes a profile and ends its sessions / Supprime un profil et ses sessions
func (s *ProfileService) DeleteProfile(ctx context.Context, id int64) error {
	if _, err := s.reader.GetByID(ctx, id); err != nil {
		return ErrProfileNotFound
	}

	if err := s.refreshStore.RevokeAllForProfile(ctx, id); err != nil {
		slog.Error("failed to revoke tokens during profile deletion", "profile_id", id, "err", err)
	}

	if err := s.writer.Delete(ctx, id); err != nil {
		slog.Error("failed to delete profile", "profile_id", id, "err", err)
		return errors.New("failed to delete profile")
	}
	return nil
}

// UpdateSystemRole changes a profile's installation role / Change le rôle système d'un profil
func (s *ProfileService) UpdateSystemRole(ctx context.Context, id int64, role domain.SystemRole) error {
	if !role.IsValid() {
		return invalid("invalid system role %q", role)
	}
	if _, err := s.reader.GetByID(ctx, id); err != nil {
		return ErrProfileNotFound
	}
	if err := s.roleRepo.UpdateSystemRole(ctx, id, role); err != nil {
		slog.Error("failed to update system role", "profile_id", id, "role", role, "err", err)
		return fmt.Errorf("failed to update system role")
	}
	return nil
}
