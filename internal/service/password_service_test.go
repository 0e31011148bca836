package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/mocks"
	"golang.org/x/crypto/bcrypt"
)

func newPasswordFixture(t *testing.T) (*PasswordService, *mocks.MockProfileRepository, *mocks.MockRefreshTokenStore, *Mailer, *mocks.MockEmailSender) {
	t.Helper()
	repo := mocks.NewMockProfileRepository()
	store := mocks.NewMockRefreshTokenStore()
	mailer, sender := newTestMailer(t)
	svc := NewPasswordService(repo, store, mailer, testAuthConfig())
	svc.delay = 0
	return svc, repo, store, mailer, sender
}

func TestPasswordService_RequestPasswordReset(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		wantEmail bool
	}{
		{name: "Valid email - profile exists", email: "test@example.com", wantEmail: true},
		{name: "Non-existent email - timing safe", email: "notfound@example.com"},
		{name: "Invalid email format", email: "invalid-email"},
		{name: "Empty email", email: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, mailer, sender := newPasswordFixture(t)
			repo.Profiles[1] = &domain.Profile{ID: 1, Email: "test@example.com"}

			if err := svc.RequestPasswordReset(context.Background(), tt.email); err != nil {
				t.Fatalf("reset request must never fail: %v", err)
			}
			mailer.Wait()

			if got := len(sender.Sent()) == 1; got != tt.wantEmail {
				t.Fatalf("email sent = %v, want %v", got, tt.wantEmail)
			}
		})
	}
}

func TestPasswordService_RequestTwiceKeepsLiveToken(t *testing.T) {
	svc, repo, _, mailer, sender := newPasswordFixture(t)
	ctx := context.Background()
	repo.Profiles[1] = &domain.Profile{ID: 1, Email: "test@example.com"}

	_ = svc.RequestPasswordReset(ctx, "test@example.com")
	_ = svc.RequestPasswordReset(ctx, "test@example.com")
	mailer.Wait()

	if len(sender.Sent()) != 1 || len(repo.ResetTokens) != 1 {
		t.Fatalf("second request should reuse the live token: emails=%d tokens=%d", len(sender.Sent()), len(repo.ResetTokens))
	}
}

func TestPasswordService_ResetPassword(t *testing.T) {
	svc, repo, store, _, _ := newPasswordFixture(t)
	ctx := context.Background()
	repo.Profiles[1] = &domain.Profile{ID: 1, Email: "test@example.com", Password: "old"}
	store.Tokens["session"] = &domain.RefreshToken{Token: "session", ProfileID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.SetPasswordResetToken(ctx, "test@example.com", "reset-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	if err := svc.ResetPassword(ctx, "reset-token", "weak"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}
	if err := svc.ResetPassword(ctx, "other", "NewP@ssw0rd"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if err := svc.ResetPassword(ctx, "reset-token", "NewP@ssw0rd"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(repo.Profiles[1].Password), []byte("NewP@ssw0rd")) != nil {
		t.Error("password should be updated")
	}
	if store.ActiveFor(1) != 0 {
		t.Error("sessions should be revoked")
	}
	if err := svc.ResetPassword(ctx, "reset-token", "NewP@ssw0rd2"); !errors.Is(err, ErrInvalidToken) {
		t.Error("token should be single use")
	}
}

func TestPasswordService_ChangePassword(t *testing.T) {
	tests := []struct {
		name          string
		current       string
		next          string
		errorContains string
	}{
		{name: "Valid change", current: "OldP@ss123", next: "NewP@ss123"},
		{name: "Wrong current password", current: "Nope", next: "NewP@ss123", errorContains: "incorrect"},
		{name: "Weak new password", current: "OldP@ss123", next: "weak", errorContains: "strength"},
		{name: "Same password", current: "OldP@ss123", next: "OldP@ss123", errorContains: "different"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _, _ := newPasswordFixture(t)
			repo.Profiles[1] = &domain.Profile{ID: 1, Email: "a@example.com", Password: hashed(t, "OldP@ss123")}

			err := svc.ChangePassword(context.Background(), 1, tt.current, tt.next)
			if tt.errorContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errorContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	svc, _, _, _, _ := newPasswordFixture(t)
	if err := svc.ChangePassword(context.Background(), 42, "a", "b"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected profile not found, got %v", err)
	}
}
