package domain

import (
	"fmt"
	"strings"
)

// UnitType is the kind of Scouting unit / Type d'unité scoute
type UnitType string

const (
	UnitTroop UnitType = "troop"
	UnitPack  UnitType = "pack"
	UnitCrew  UnitType = "crew"
	UnitShip  UnitType = "ship"
)

// ParseUnitType normalizes and validates a unit type / Normalise et valide un type d'unité
func ParseUnitType(s string) (UnitType, error) {
	t := UnitType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case UnitTroop, UnitPack, UnitCrew, UnitShip:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown unit type %q", ErrInvalidInput, s)
}

// FeeSettings describes card processing fees for a unit / Frais de traitement carte d'une unité
type FeeSettings struct {
	PercentBps  int64 // Percentage in basis points (260 = 2.60%)
	FixedCents  int64 // Fixed fee per transaction
	PassToPayer bool  // Payer covers the fee on top of the amount due
}

// Validate checks fee settings ranges / Vérifie les bornes des frais
func (f FeeSettings) Validate() error {
	if f.PercentBps < 0 || f.PercentBps >= 10000 {
		return fmt.Errorf("%w: fee percent must be between 0 and 9999 basis points", ErrInvalidInput)
	}
	if f.FixedCents < 0 {
		return fmt.Errorf("%w: fixed fee cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Unit is the tenant: a troop, pack, crew or ship / Le locataire : troupe, meute, etc.
type Unit struct {
	BaseModel
	ID               int64
	Name             string
	Type             UnitType
	Number           string
	Council          string
	SquareLocationID string
	Fees             FeeSettings
}

// DisplayName renders "Troop 42" style names / Affiche un nom du type "Troop 42"
func (u *Unit) DisplayName() string {
	if u.Number == "" {
		return u.Name
	}
	t := string(u.Type)
	if t != "" {
		t = strings.ToUpper(t[:1]) + t[1:]
	}
	return fmt.Sprintf("%s %s", t, u.Number)
}
