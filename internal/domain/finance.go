package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScoutAccount holds a scout's balances / Soldes d'un scout
//
// BillingBalanceCents is what the scout owes (positive) or has prepaid
// (negative). FundsBalanceCents is fundraiser credit available to spend.
// Both are caches of the journal and can be recomputed from it.
type ScoutAccount struct {
	ID                  int64
	UnitID              int64
	ScoutID             int64
	ScoutName           string
	BillingBalanceCents int64
	FundsBalanceCents   int64
	UpdatedAt           time.Time
}

// BillingKind tells how a billing total is spread / Mode de répartition d'une facturation
type BillingKind string

const (
	BillingShared BillingKind = "shared" // Total split across scouts
	BillingFixed  BillingKind = "fixed"  // Same amount per scout
)

// ParseBillingKind validates a billing kind / Valide un type de facturation
func ParseBillingKind(s string) (BillingKind, error) {
	k := BillingKind(strings.ToLower(strings.TrimSpace(s)))
	if k != BillingShared && k != BillingFixed {
		return "", fmt.Errorf("%w: billing kind must be shared or fixed", ErrInvalidInput)
	}
	return k, nil
}

// BillingStatus is the lifecycle state of a billing record / État d'une facturation
type BillingStatus string

const (
	BillingOpen BillingStatus = "open"
	BillingVoid BillingStatus = "void"
)

// BillingRecord is one billing event across scouts / Une facturation appliquée à des scouts
type BillingRecord struct {
	ID             int64
	UnitID         int64
	Description    string
	Kind           BillingKind
	TotalCents     int64
	DueDate        *time.Time
	Status         BillingStatus
	JournalEntryID int64
	CreatedBy      int64
	CreatedAt      time.Time
	Charges        []Charge
}

// ChargeStatus is the payment state of a charge / État de paiement d'une charge
type ChargeStatus string

const (
	ChargeOpen ChargeStatus = "open"
	ChargePaid ChargeStatus = "paid"
	ChargeVoid ChargeStatus = "void"
)

// Charge is one scout's share of a billing record / Part d'un scout dans une facturation
type Charge struct {
	ID              int64
	UnitID          int64
	BillingRecordID int64
	ScoutAccountID  int64
	AmountCents     int64
	PaidCents       int64
	Status          ChargeStatus
	PaidAt          *time.Time
	Description     string
	CreatedAt       time.Time
}

// Outstanding returns the unpaid amount / Retourne le montant restant dû
func (c *Charge) Outstanding() int64 {
	if c.Status == ChargeVoid {
		return 0
	}
	return c.AmountCents - c.PaidCents
}

// PaymentMethod is how money was received / Moyen de paiement
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCheck  PaymentMethod = "check"
	PaymentSquare PaymentMethod = "square"
	PaymentFunds  PaymentMethod = "funds"
	PaymentOther  PaymentMethod = "other"
)

// ParsePaymentMethod validates a payment method / Valide un moyen de paiement
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentCash, PaymentCheck, PaymentSquare, PaymentFunds, PaymentOther:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, s)
}

// Payment is money applied to a scout account / Paiement appliqué au compte d'un scout
type Payment struct {
	ID             int64
	UnitID         int64
	ScoutAccountID int64
	GrossCents     int64
	FeeCents       int64
	NetCents       int64
	Method         PaymentMethod
	Reference      string
	Note           string // Serialized note, see finance.FormatNote
	IdempotencyKey string
	JournalEntryID int64
	CreatedBy      int64
	CreatedAt      time.Time
	Allocations    []PaymentAllocation
}

// PaymentAllocation is the part of a payment applied to one charge / Part d'un paiement affectée à une charge
type PaymentAllocation struct {
	ChargeID    int64 `json:"charge_id"`
	AmountCents int64 `json:"amount_cents"`
}
