package dto

import (
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/roster"
	"github.com/richblaalid/chuckbox/internal/service"
)

const dateLayout = "2006-01-02"

// ScoutResponse is the JSON view of a scout / Vue JSON d'un scout
type ScoutResponse struct {
	ID          int64     `json:"id"`
	UnitID      int64     `json:"unit_id"`
	BSAMemberID string    `json:"bsa_member_id,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Nickname    string    `json:"nickname,omitempty"`
	DisplayName string    `json:"display_name"`
	BirthDate   string    `json:"birth_date,omitempty"`
	PatrolID    *int64    `json:"patrol_id,omitempty"`
	PatrolName  string    `json:"patrol_name,omitempty"`
	Rank        string    `json:"rank,omitempty"`
	Position    string    `json:"position,omitempty"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ScoutToDTO converts a scout / Convertit un scout
func ScoutToDTO(s *domain.Scout) *ScoutResponse {
	out := &ScoutResponse{
		ID:          s.ID,
		UnitID:      s.UnitID,
		BSAMemberID: s.BSAMemberID,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Nickname:    s.Nickname,
		DisplayName: s.DisplayName(),
		PatrolID:    s.PatrolID,
		PatrolName:  s.PatrolName,
		Rank:        s.Rank,
		Position:    s.Position,
		Status:      string(s.Status),
		UpdatedAt:   s.UpdatedAt,
	}
	if s.BirthDate != nil {
		out.BirthDate = s.BirthDate.Format(dateLayout)
	}
	return out
}

// ScoutsToDTO converts a scout list / Convertit une liste de scouts
func ScoutsToDTO(scouts []domain.Scout) []*ScoutResponse {
	out := make([]*ScoutResponse, 0, len(scouts))
	for i := range scouts {
		out = append(out, ScoutToDTO(&scouts[i]))
	}
	return out
}

// ScoutRequest is the scout form / Formulaire d'un scout
type ScoutRequest struct {
	BSAMemberID string `json:"bsa_member_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Nickname    string `json:"nickname"`
	BirthDate   string `json:"birth_date"`
	PatrolID    *int64 `json:"patrol_id"`
	Rank        string `json:"rank"`
	Position    string `json:"position"`
}

// ToInput parses the birth date / Analyse la date de naissance
func (r ScoutRequest) ToInput() (service.ScoutInput, error) {
	birth, err := roster.ParseDate(r.BirthDate)
	if err != nil {
		return service.ScoutInput{}, err
	}
	return service.ScoutInput{
		BSAMemberID: r.BSAMemberID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Nickname:    r.Nickname,
		BirthDate:   birth,
		PatrolID:    r.PatrolID,
		Rank:        r.Rank,
		Position:    r.Position,
	}, nil
}

// PatrolResponse is a patrol or den / Une patrouille ou sizaine
type PatrolResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PatrolsToDTO converts patrols / Convertit les patrouilles
func PatrolsToDTO(ps []domain.Patrol) []PatrolResponse {
	out := make([]PatrolResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, PatrolResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
	}
	return out
}

// PatrolRequest names a new patrol / Nomme une nouvelle patrouille
type PatrolRequest struct {
	Name string `json:"name"`
}

// GuardianResponse links a profile to a scout / Lie un profil à un scout
type GuardianResponse struct {
	ScoutID      int64  `json:"scout_id"`
	ProfileID    int64  `json:"profile_id"`
	Relationship string `json:"relationship,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
}

// GuardiansToDTO converts guardians / Convertit les responsables
func GuardiansToDTO(gs []domain.Guardian) []GuardianResponse {
	out := make([]GuardianResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, GuardianResponse(g))
	}
	return out
}

// GuardianRequest links an existing profile by email / Lie un profil existant par email
type GuardianRequest struct {
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
}
