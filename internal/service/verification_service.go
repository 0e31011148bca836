package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
)

// timingDelay pads answers that must not reveal whether an email exists
const timingDelay = 200 * time.Millisecond

// resendAttempt tracks resend attempts for throttling / Suivi des tentatives de renvoi pour le throttling
type resendAttempt struct {
	count     int       // Number of attempts / Nombre de tentatives
	firstSeen time.Time // First attempt timestamp / Horodatage de la première tentative
	lastSeen  time.Time // Last attempt timestamp / Horodatage de la dernière tentative
}

// VerificationService handles email verification / Gère la vérification des emails
type VerificationService struct {
	verification   ports.EmailVerificationRepository
	profiles       ports.ProfileReader
	mailer         *Mailer
	conf           *config.Config
	metrics        ProfileMetricsRecorder
	resendThrottle map[string]*resendAttempt // email -> attempt tracking
	throttleMutex  sync.Mutex
	delay          time.Duration
}

// NewVerificationService creates a new email verification service instance
func NewVerificationService(
	repo ports.ProfileRepository,
	mailer *Mailer,
	conf *config.Config,
	metrics ProfileMetricsRecorder,
) *VerificationService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &VerificationService{
		verification:   repo,
		profiles:       repo,
		mailer:         mailer,
		conf:           conf,
		metrics:        metrics,
		resendThrottle: make(map[string]*resendAttempt),
		delay:          timingDelay,
	}
}

// SendVerificationEmail generates a verification token and sends email / Génère un token et envoie l'email de vérification
func (s *VerificationService) SendVerificationEmail(ctx context.Context, profile *domain.Profile) error {
	token := uuid.New().String()
	ttl := s.conf.EmailVerification.TokenExpiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	if err := s.verification.UpdateDBSendEmail(ctx, token, time.Now().Add(ttl), profile.ID); err != nil {
		slog.Error("failed to set verification token", "email", profile.Email, "err", err)
		return fmt.Errorf("failed to generate verification token")
	}

	s.mailer.SendAsync(TemplateVerification, profile.Email, verificationEmail{
		Email:           profile.Email,
		VerificationURL: fmt.Sprintf("%s/verify-email?token=%s", s.conf.Server.FrontendURL, url.QueryEscape(token)),
		Duration:        formatLockoutDuration(ttl),
	})
	return nil
}

// ResendVerification resends verification email (timing-safe) / Renvoie l'email de vérification (sécurisé contre l'énumération)
func (s *VerificationService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		time.Sleep(s.delay)
		return nil
	}

	// Throttle before touching the database, even for unknown emails
	if !s.checkResendThrottle(email) {
		time.Sleep(s.delay)
		return nil
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil || profile.EmailVerified {
		time.Sleep(s.delay)
		return nil
	}

	if err := s.SendVerificationEmail(ctx, profile); err != nil {
		slog.Error("failed to resend verification", "email", email, "err", err)
		return nil
	}
	slog.Info("verification email resend successful", "email", email)
	return nil
}

// VerifyEmail verifies a profile's email using token / Vérifie l'email d'un profil via le token
func (s *VerificationService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return invalid("verification token is required")
	}

	if err := s.verification.UpdateDBVerify(ctx, token); err != nil {
		s.metrics.RecordEmailVerification("failure")
		return ErrInvalidToken
	}
	s.metrics.RecordEmailVerification("success")
	return nil
}

// checkResendThrottle reports whether a resend is allowed for email / Vérifie si le renvoi est autorisé
func (s *VerificationService) checkResendThrottle(email string) bool {
	s.throttleMutex.Lock()
	defer s.throttleMutex.Unlock()

	now := time.Now()
	attempt, exists := s.resendThrottle[email]

	if !exists || now.Sub(attempt.firstSeen) >= s.conf.EmailVerification.ResendCooldown {
		s.resendThrottle[email] = &resendAttempt{count: 1, firstSeen: now, lastSeen: now}
		return true
	}

	if attempt.count >= s.conf.EmailVerification.ResendMaxAttempts {
		remaining := s.conf.EmailVerification.ResendCooldown - now.Sub(attempt.firstSeen)
		slog.Warn("email verification resend throttled",
			"email", email,
			"attempts", attempt.count,
			"remaining_cooldown", remaining.Round(time.Second).String(),
		)
		return false
	}

	attempt.count++
	attempt.lastSeen = now
	return true
}

// PruneThrottles removes stale throttle entries / Nettoie les entrées expirées
func (s *VerificationService) PruneThrottles() int {
	s.throttleMutex.Lock()
	defer s.throttleMutex.Unlock()

	now := time.Now()
	removed := 0
	for email, attempt := range s.resendThrottle {
		if now.Sub(attempt.lastSeen) >= s.conf.EmailVerification.ResendCooldown*2 {
			delete(s.resendThrottle, email)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("cleaned up expired resend throttle entries", "count", removed)
	}
	return removed
}
