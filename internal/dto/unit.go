package dto

import (
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/service"
)

// FeeSettingsDTO is a unit's card fee configuration / Configuration des frais carte d'une unité
type FeeSettingsDTO struct {
	PercentBps  int64 `json:"percent_bps"`
	FixedCents  int64 `json:"fixed_cents"`
	PassToPayer bool  `json:"pass_to_payer"`
}

// UnitResponse is the JSON view of a unit / Vue JSON d'une unité
type UnitResponse struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	DisplayName      string         `json:"display_name"`
	Type             string         `json:"type"`
	Number           string         `json:"number,omitempty"`
	Council          string         `json:"council,omitempty"`
	SquareLocationID string         `json:"square_location_id,omitempty"`
	Fees             FeeSettingsDTO `json:"fees"`
	Role             string         `json:"role,omitempty"` // Caller's role when listed from /api/units
	CreatedAt        time.Time      `json:"created_at"`
}

// UnitToDTO converts a unit / Convertit une unité
func UnitToDTO(u *domain.Unit) *UnitResponse {
	return &UnitResponse{
		ID:               u.ID,
		Name:             u.Name,
		DisplayName:      u.DisplayName(),
		Type:             string(u.Type),
		Number:           u.Number,
		Council:          u.Council,
		SquareLocationID: u.SquareLocationID,
		Fees: FeeSettingsDTO{
			PercentBps:  u.Fees.PercentBps,
			FixedCents:  u.Fees.FixedCents,
			PassToPayer: u.Fees.PassToPayer,
		},
		CreatedAt: u.CreatedAt,
	}
}

// UnitMembershipsToDTO lists the caller's units with their role / Liste les unités avec le rôle
func UnitMembershipsToDTO(ums []ports.UnitMembership) []*UnitResponse {
	out := make([]*UnitResponse, 0, len(ums))
	for i := range ums {
		u := UnitToDTO(&ums[i].Unit)
		u.Role = string(ums[i].Role)
		out = append(out, u)
	}
	return out
}

// CreateUnitRequest is the new unit form / Formulaire de création d'unité
type CreateUnitRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Number  string `json:"number"`
	Council string `json:"council"`
}

// ToInput validates the unit type / Valide le type d'unité
func (r CreateUnitRequest) ToInput() (service.NewUnit, error) {
	t, err := domain.ParseUnitType(r.Type)
	if err != nil {
		return service.NewUnit{}, err
	}
	return service.NewUnit{Name: r.Name, Type: t, Number: r.Number, Council: r.Council}, nil
}

// UpdateFeesRequest replaces fee settings and the Square location / Remplace frais et emplacement Square
type UpdateFeesRequest struct {
	FeeSettingsDTO
	SquareLocationID string `json:"square_location_id"`
}

// Settings returns the domain fee settings / Retourne les frais du domaine
func (r UpdateFeesRequest) Settings() domain.FeeSettings {
	return domain.FeeSettings{PercentBps: r.PercentBps, FixedCents: r.FixedCents, PassToPayer: r.PassToPayer}
}

// MemberResponse is one unit member / Un membre d'unité
type MemberResponse struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profile_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberToDTO converts a membership / Convertit une adhésion
func MemberToDTO(m *domain.Membership) *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		ProfileID: m.ProfileID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      string(m.Role),
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// MembersToDTO converts a member list / Convertit une liste de membres
func MembersToDTO(ms []domain.Membership) []*MemberResponse {
	out := make([]*MemberResponse, 0, len(ms))
	for i := range ms {
		out = append(out, MemberToDTO(&ms[i]))
	}
	return out
}

// InviteRequest invites an email with a role / Invite un email avec un rôle
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InviteResponse is a pending invite; the token is only set in development
// Invitation en attente; le token n'est renvoyé qu'en développement
type InviteResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token,omitempty"`
}

// InviteToDTO converts an invite / Convertit une invitation
func InviteToDTO(inv *domain.Invite) *InviteResponse {
	return &InviteResponse{ID: inv.ID, Email: inv.Email, Role: string(inv.Role), ExpiresAt: inv.ExpiresAt}
}

// TokenRequest carries an emailed token / Transporte un token reçu par email
type TokenRequest struct {
	Token string `json:"token"`
}

// RoleRequest changes a member's role / Change le rôle d'un membre
type RoleRequest struct {
	Role string `json:"role"`
}
