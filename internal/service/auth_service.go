package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

var errInternal = errors.New("internal server error")

// AuthService handles authentication operations / Gère les opérations d'authentification
type AuthService struct {
	profiles     ports.ProfileReader
	security     ports.AccountSecurityRepository
	refreshStore ports.RefreshTokenStore
	conf         *config.Config
	db           ports.TxBeginner
	profileLocks map[int64]*lockEntry
	mapMutex     sync.Mutex
	metrics      AuthMetricsRecorder
}

// NewAuthService creates authentication service instance / Crée une instance de service d'authentification
func NewAuthService(
	repo ports.ProfileRepository,
	refreshStore ports.RefreshTokenStore,
	conf *config.Config,
	db ports.TxBeginner,
	metrics AuthMetricsRecorder,
) *AuthService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AuthService{
		profiles:     repo,
		security:     repo,
		refreshStore: refreshStore,
		conf:         conf,
		db:           db,
		profileLocks: make(map[int64]*lockEntry),
		metrics:      metrics,
	}
}

// getProfileLock retrieves or creates profile-specific mutex / Récupère ou crée un mutex par profil
func (s *AuthService) getProfileLock(profileID int64) *sync.Mutex {
	s.mapMutex.Lock()
	defer s.mapMutex.Unlock()

	entry, exists := s.profileLocks[profileID]
	if !exists {
		entry = &lockEntry{
			mu:       &sync.Mutex{},
			lastUsed: time.Now(),
		}
		s.profileLocks[profileID] = entry
	} else {
		entry.lastUsed = time.Now()
	}

	return entry.mu
}

// PruneLocks removes locks unused for longer than idle / Supprime les locks inutilisés
func (s *AuthService) PruneLocks(idle time.Duration) int {
	s.mapMutex.Lock()
	defer s.mapMutex.Unlock()

	now := time.Now()
	removed := 0
	for profileID, entry := range s.profileLocks {
		if now.Sub(entry.lastUsed) > idle {
			delete(s.profileLocks, profileID)
			removed++
		}
	}
	return removed
}

func (s *AuthService) lockedError(d time.Duration) error {
	return fmt.Errorf("%w due to multiple failed login attempts, try again in %s", ErrAccountLocked, formatLockoutDuration(d))
}

// Login authenticates a profile and issues tokens / Authentifie le profil et génère les tokens
func (s *AuthService) Login(ctx context.Context, email, password, ipHash, uaHash string) (*domain.Profile, *auth.TokenPair, error) {
	profile, err := s.profiles.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		s.metrics.RecordLoginAttempt("failure")
		return nil, nil, ErrInvalidCredentials
	}

	if profile.IsLocked() {
		s.metrics.RecordLoginAttempt("locked")
		return nil, nil, s.lockedError(time.Until(*profile.LockedUntil))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		failed := profile.FailedLoginAttempts + 1

		if failed >= s.conf.Security.MaxFailedAttempts {
			lockedUntil := time.Now().Add(s.conf.Security.LockoutDuration)
			if err := s.security.LockAccount(ctx, profile.ID, lockedUntil); err != nil {
				slog.Error("failed to lock account", "profile_id", profile.ID, "err", err)
			}
			s.metrics.RecordAccountLockout()
			s.metrics.RecordLoginAttempt("locked")
			return nil, nil, s.lockedError(s.conf.Security.LockoutDuration)
		}

		if err := s.security.IncrementFailedAttempts(ctx, profile.ID); err != nil {
			slog.Error("failed to record failed login attempt", "profile_id", profile.ID, "err", err)
		}
		s.metrics.RecordLoginAttempt("failure")
		return nil, nil, ErrInvalidCredentials
	}

	if !profile.EmailVerified {
		s.metrics.RecordLoginAttempt("unverified")
		return nil, nil, ErrEmailNotVerified
	}

	lock := s.getProfileLock(profile.ID)
	lock.Lock()
	defer lock.Unlock()

	var pair *auth.TokenPair
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		txRefresh := s.refreshStore.WithTx(tx)

		// One session per profile: previous refresh tokens stop working
		if err := txRefresh.RevokeAllForProfile(ctx, profile.ID); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}

		pair, err = s.issue(ctx, txRefresh, profile, ipHash, uaHash)
		if err != nil {
			return err
		}

		if err := s.security.WithTx(tx).ResetFailedAttempts(ctx, profile.ID); err != nil {
			slog.Error("failed to reset failed login attempts", "profile_id", profile.ID, "err", err)
		}
		return nil
	})
	if err != nil {
		slog.Error("login transaction failed", "profile_id", profile.ID, "err", err)
		return nil, nil, errInternal
	}

	s.metrics.RecordLoginAttempt("success")
	return profile, pair, nil
}

// issue generates a token pair and stores the refresh half / Génère une paire et stocke le refresh token
func (s *AuthService) issue(ctx context.Context, store ports.RefreshTokenStore, profile *domain.Profile, ipHash, uaHash string) (*auth.TokenPair, error) {
	pair, err := auth.GenerateTokenPair(
		profile.ID,
		string(profile.SystemRole),
		s.conf.Auth.JWTSecret,
		s.conf.Auth.AccessTokenDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("generate token pair: %w", err)
	}

	now := time.Now()
	if err := store.Save(ctx, &domain.RefreshToken{
		Token:     pair.RefreshToken,
		ProfileID: profile.ID,
		IssueAt:   now,
		ExpiresAt: now.Add(s.conf.Auth.RefreshTokenDuration),
		IPHash:    ipHash,
		UAHash:    uaHash,
	}); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

// Refresh validates and rotates a refresh token / Valide et renouvelle le refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ipHash, uaHash string) (*auth.TokenPair, error) {
	record, err := s.refreshStore.Get(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh("failure")
		return nil, fmt.Errorf("%w: unknown refresh token", ErrInvalidToken)
	}

	if !record.IsTokenValid() {
		s.metrics.RecordTokenRefresh("failure")
		return nil, fmt.Errorf("%w: refresh token revoked or expired", ErrInvalidToken)
	}

	if record.IPHash != ipHash || record.UAHash != uaHash {
		slog.Warn("refresh token binding validation failed", "profile_id", record.ProfileID)
		s.metrics.RecordTokenRefresh("binding_failure")
		return nil, fmt.Errorf("%w: refresh token binding validation failed", ErrInvalidToken)
	}

	profile, err := s.profiles.GetByID(ctx, record.ProfileID)
	if err != nil {
		s.metrics.RecordTokenRefresh("failure")
		return nil, ErrProfileNotFound
	}

	lock := s.getProfileLock(profile.ID)
	lock.Lock()
	defer lock.Unlock()

	var pair *auth.TokenPair
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		txRefresh := s.refreshStore.WithTx(tx)
		if err := txRefresh.Revoke(ctx, refreshToken); err != nil {
			return fmt.Errorf("revoke old token: %w", err)
		}
		pair, err = s.issue(ctx, txRefresh, profile, ipHash, uaHash)
		return err
	})
	if err != nil {
		slog.Error("token refresh transaction failed", "profile_id", profile.ID, "err", err)
		s.metrics.RecordTokenRefresh("failure")
		return nil, errInternal
	}

	s.metrics.RecordTokenRefresh("success")
	return pair, nil
}

// ValidateCredentials checks if credentials are valid / Vérifie si les identifiants sont valides
func (s *AuthService) ValidateCredentials(ctx context.Context, email, password string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

// Logout revokes all refresh tokens of a profile / Révoque tous les refresh tokens du profil
func (s *AuthService) Logout(ctx context.Context, profileID int64) error {
	lock := s.getProfileLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.refreshStore.RevokeAllForProfile(ctx, profileID); err != nil {
		slog.Error("failed to revoke tokens", "err", err, "profile_id", profileID)
		return errInternal
	}

	slog.Info("all refresh tokens revoked", "profile_id", profileID)
	return nil
}

// PurgeExpiredTokens deletes refresh tokens past expiry / Supprime les refresh tokens expirés
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) error {
	n, err := s.refreshStore.PurgeExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	if n > 0 {
		slog.Info("expired refresh tokens purged", "count", n)
	}
	return nil
}
