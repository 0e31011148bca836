package web

import (
	"net/http"

	"github.com/richblaalid/chuckbox/internal/dto"
)

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.container.AdvancementSvc.ListBadges(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"badges": badges})
}

func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.container.AdvancementSvc.GetBadge(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, badge)
}

// ImportBadges upserts the YAML badge catalog / Importe le catalogue YAML
func (h *Handler) ImportBadges(w http.ResponseWriter, r *http.Request) {
	limitRequestBody(w, r, maxImportBytes)
	n, err := h.container.AdvancementSvc.ImportCatalog(r.Context(), r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]int{"imported": n})
}

// ScoutProgress lists a scout's badges / Liste les badges d'un scout
func (h *Handler) ScoutProgress(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress, err := h.container.AdvancementSvc.ScoutProgress(r.Context(), m, scoutID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"badges": progress})
}

func (h *Handler) StartBadge(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.StartBadgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sb, err := h.container.AdvancementSvc.StartBadge(r.Context(), m, scoutID, req.Code, req.Counselor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.ScoutBadgeToDTO(sb))
}

// RecordRequirement signs off one requirement; repeating it answers 200 instead of 201
// Valide une exigence; une répétition répond 200 au lieu de 201
func (h *Handler) RecordRequirement(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.RequirementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	at, err := req.Date()
	if err != nil {
		writeError(w, r, err)
		return
	}

	sb, created, err := h.container.AdvancementSvc.RecordRequirement(r.Context(), m, scoutID, r.PathValue("code"), req.Number, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	jsonStatus(w, code, dto.ScoutBadgeToDTO(sb))
}

func (h *Handler) CompleteBadge(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.CompleteBadgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sb, err := h.container.AdvancementSvc.CompleteBadge(r.Context(), m, scoutID, r.PathValue("code"), req.Force)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.ScoutBadgeToDTO(sb))
}
