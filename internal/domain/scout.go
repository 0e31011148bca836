package domain

import (
	"strings"
	"time"
)

// ScoutStatus is the roster status of a scout / Statut d'un scout dans l'effectif
type ScoutStatus string

const (
	ScoutActive   ScoutStatus = "active"
	ScoutInactive ScoutStatus = "inactive"
)

// Scout is a youth member of a unit / Jeune membre d'une unité
type Scout struct {
	BaseModel
	ID          int64
	UnitID      int64
	PatrolID    *int64
	PatrolName  string
	BSAMemberID string
	FirstName   string
	LastName    string
	Nickname    string
	BirthDate   *time.Time
	Rank        string
	Position    string
	Status      ScoutStatus
}

// IsActive reports whether the scout is on the active roster / Indique si le scout est actif
func (s *Scout) IsActive() bool {
	return s.Status == ScoutActive
}

// DisplayName prefers the nickname over the first name / Préfère le surnom au prénom
func (s *Scout) DisplayName() string {
	first := s.FirstName
	if s.Nickname != "" {
		first = s.Nickname
	}
	return strings.TrimSpace(first + " " + s.LastName)
}

// Patrol groups scouts within a unit / Regroupe des scouts dans une unité
type Patrol struct {
	ID        int64
	UnitID    int64
	Name      string
	CreatedAt time.Time
}

// Guardian links a profile to a scout they are responsible for / Lie un profil à un scout dont il est responsable
type Guardian struct {
	ScoutID      int64
	ProfileID    int64
	Relationship string

	Email string
	Name  string
}
