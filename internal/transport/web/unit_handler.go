package web

import (
	"net/http"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/dto"
)

// actor returns the caller's membership in the routed unit / Retourne l'adhésion de l'appelant
func actor(w http.ResponseWriter, r *http.Request) (*domain.Membership, bool) {
	m, ok := MembershipFrom(r.Context())
	if !ok {
		ErrorResponse(w, "unit not found", http.StatusNotFound)
	}
	return m, ok
}

// CreateUnit creates a unit with the caller as admin / Crée une unité dont l'appelant est admin
func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	profileID, _ := ProfileIDFrom(r.Context())
	unit, err := h.container.UnitSvc.CreateUnit(r.Context(), profileID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.UnitToDTO(unit)
	resp.Role = string(domain.RoleAdmin)
	jsonStatus(w, http.StatusCreated, resp)
}

// ListMyUnits lists the caller's units / Liste les unités de l'appelant
func (h *Handler) ListMyUnits(w http.ResponseWriter, r *http.Request) {
	profileID, _ := ProfileIDFrom(r.Context())
	units, err := h.container.UnitSvc.ListMyUnits(r.Context(), profileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"units": dto.UnitMembershipsToDTO(units)})
}

func (h *Handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	unit, err := h.container.UnitSvc.GetUnit(r.Context(), m.UnitID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.UnitToDTO(unit)
	resp.Role = string(m.Role)
	jsonResponse(w, resp)
}

// UpdateFees replaces the card fee settings / Remplace la configuration des frais
func (h *Handler) UpdateFees(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.UpdateFeesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	unit, err := h.container.UnitSvc.UpdateFeeSettings(r.Context(), m, req.Settings(), req.SquareLocationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.UnitToDTO(unit))
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	members, err := h.container.UnitSvc.ListMembers(r.Context(), m.UnitID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"members": dto.MembersToDTO(members)})
}

// InviteMember emails an invite link / Envoie un lien d'invitation
func (h *Handler) InviteMember(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, token, err := h.container.UnitSvc.InviteMember(r.Context(), m, req.Email, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.InviteToDTO(inv)
	// Development only: no mail server needed to accept / Dev uniquement
	if h.container.Config.IsDev() {
		resp.Token = token
	}
	jsonStatus(w, http.StatusCreated, resp)
}

// AcceptInvite joins the invited unit / Rejoint l'unité de l'invitation
func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profileID, _ := ProfileIDFrom(r.Context())
	m, err := h.container.UnitSvc.AcceptInvite(r.Context(), profileID, req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.MemberToDTO(m))
}

func (h *Handler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	membershipID, err := pathID(r, "membershipID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	target, err := h.container.UnitSvc.ChangeRole(r.Context(), m, membershipID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.MemberToDTO(target))
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	membershipID, err := pathID(r, "membershipID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.container.UnitSvc.RemoveMember(r.Context(), m, membershipID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
