package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
)

// Common service errors
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const passwordRules = "password does not meet strength requirements: must be 8 to 72 bytes with uppercase, lowercase, digit, and special character"

// isStrongPassword validates that a password meets security requirements:
//   - At least 8 characters long
//   - Maximum 72 bytes (bcrypt limitation)
//   - Contains at least one uppercase letter
//   - Contains at least one lowercase letter
//   - Contains at least one digit
//   - Contains at least one special character
func isStrongPassword(password string) bool {
	if len(password) < 8 || len(password) > 72 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasDigit   bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasDigit && hasSpecial
}

// isValidEmail checks RFC 5322 syntax and the 254 character limit.
func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// normalizeEmail lowercases and trims an address / Normalise une adresse email
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lockEntry tracks a profile-specific mutex and its last access time for cleanup.
type lockEntry struct {
	mu       *sync.Mutex
	lastUsed time.Time
}

// formatLockoutDuration formats a duration into a human-readable string.
// Examples: "1 minute", "15 minutes", "45 seconds"
func formatLockoutDuration(d time.Duration) string {
	if d < time.Minute {
		seconds := int(d.Seconds())
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}

	minutes := int(d.Round(time.Minute).Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// inTx runs fn inside a transaction, committing when it returns nil / Exécute fn dans une transaction
func inTx(ctx context.Context, db ports.TxBeginner, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// repoErr maps storage errors onto domain errors / Traduit les erreurs de stockage en erreurs métier
func repoErr(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoRecord):
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case errors.Is(err, repository.ErrDup), errors.Is(err, repository.ErrDuplicateEmail):
		return fmt.Errorf("%s already exists: %w", what, domain.ErrConflict)
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return fmt.Errorf("%s references a missing record: %w", what, domain.ErrInvalidInput)
	case errors.Is(err, repository.ErrCheckViolation):
		return fmt.Errorf("%s changed concurrently: %w", what, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// invalid wraps a message as ErrInvalidInput / Enveloppe un message en ErrInvalidInput
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}
