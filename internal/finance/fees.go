// Package finance holds the pure money math used by the ledger services:
// processing fees, billing splits and payment note encoding.
package finance

import (
	"fmt"

	"github.com/richblaalid/chuckbox/internal/domain"
)

const bpsDenominator = 10000

// Fee returns the processing fee charged on gross / Retourne les frais sur le montant brut
//
// fee = ceil(gross * bps / 10000) + fixed, capped at gross. A zero gross has no fee.
func Fee(gross int64, s domain.FeeSettings) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if gross < 0 {
		return 0, fmt.Errorf("%w: amount cannot be negative", domain.ErrInvalidInput)
	}
	return fee(gross, s), nil
}

func fee(gross int64, s domain.FeeSettings) int64 {
	if gross == 0 {
		return 0
	}
	f := (gross*s.PercentBps+bpsDenominator-1)/bpsDenominator + s.FixedCents
	if f > gross {
		f = gross
	}
	return f
}

// Breakdown is a gross amount split into net and fee / Montant brut décomposé en net et frais
type Breakdown struct {
	GrossCents int64 `json:"gross_cents"`
	FeeCents   int64 `json:"fee_cents"`
	NetCents   int64 `json:"net_cents"`
}

// Net computes the breakdown for a gross amount / Calcule le net pour un brut
func Net(gross int64, s domain.FeeSettings) (Breakdown, error) {
	f, err := Fee(gross, s)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{GrossCents: gross, FeeCents: f, NetCents: gross - f}, nil
}

// GrossUp returns the smallest gross whose net covers net / Plus petit brut couvrant le net
//
// Used when a unit passes processing fees on to the payer.
func GrossUp(net int64, s domain.FeeSettings) (Breakdown, error) {
	if err := s.Validate(); err != nil {
		return Breakdown{}, err
	}
	if net < 0 {
		return Breakdown{}, fmt.Errorf("%w: amount cannot be negative", domain.ErrInvalidInput)
	}
	if net == 0 {
		return Breakdown{}, nil
	}

	// Closed form estimate, then walk to the exact minimum.
	// gross - fee(gross) never decreases as gross grows since bps < 10000.
	den := bpsDenominator - s.PercentBps
	g := ((net+s.FixedCents)*bpsDenominator + den - 1) / den
	for g > 0 && g-fee(g, s) >= net && g-1-fee(g-1, s) >= net {
		g--
	}
	for g-fee(g, s) < net {
		g++
	}

	f := fee(g, s)
	return Breakdown{GrossCents: g, FeeCents: f, NetCents: g - f}, nil
}
