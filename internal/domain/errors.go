package domain

import "errors"

// Domain errors shared by services and the HTTP layer / Erreurs du domaine partagées
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrLastAdmin         = errors.New("a unit must keep at least one admin")
	ErrUnbalancedEntry   = errors.New("journal entry is not balanced")
	ErrInsufficientFunds = errors.New("insufficient scout funds")
	ErrAlreadyVoided     = errors.New("already voided")
	ErrSyncExpired       = errors.New("roster sync has expired")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrGateway           = errors.New("payment gateway unavailable")
	ErrPaymentsDisabled  = errors.New("online payments are not configured for this unit")
)
