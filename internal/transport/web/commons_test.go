package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/service"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"malformed", fmt.Errorf("%w: invalid unitID", errBadRequest), http.StatusBadRequest},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"refresh token", fmt.Errorf("refresh: %w", service.ErrInvalidToken), http.StatusUnauthorized},
		{"unverified", service.ErrEmailNotVerified, http.StatusForbidden},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("scout: %w", domain.ErrNotFound), http.StatusNotFound},
		{"no record", repository.ErrNoRecord, http.StatusNotFound},
		{"last admin", domain.ErrLastAdmin, http.StatusConflict},
		{"voided", domain.ErrAlreadyVoided, http.StatusConflict},
		{"sync expired", domain.ErrSyncExpired, http.StatusConflict},
		{"payments disabled", domain.ErrPaymentsDisabled, http.StatusConflict},
		{"validation", fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput), http.StatusUnprocessableEntity},
		{"unbalanced", domain.ErrUnbalancedEntry, http.StatusUnprocessableEntity},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"declined", domain.ErrPaymentDeclined, http.StatusPaymentRequired},
		{"gateway", domain.ErrGateway, http.StatusBadGateway},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}
