package web

import (
	"net/http"
	"time"

	"github.com/richblaalid/chuckbox/internal/dto"
)

// CreateExtensionToken issues a browser extension token, shown once
// Émet un token d'extension, affiché une seule fois
func (h *Handler) CreateExtensionToken(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.CreateTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tok, plain, err := h.container.ExtensionSvc.CreateExtensionToken(r.Context(), m, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dto.ExtensionTokenToDTO(tok, time.Now())
	resp.Token = plain
	jsonStatus(w, http.StatusCreated, resp)
}

func (h *Handler) ListExtensionTokens(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	tokens, err := h.container.ExtensionSvc.ListExtensionTokens(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"tokens": dto.ExtensionTokensToDTO(tokens, time.Now())})
}

func (h *Handler) RevokeExtensionToken(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	tokenID, err := pathID(r, "tokenID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.container.ExtensionSvc.RevokeExtensionToken(r.Context(), m, tokenID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StageSync receives a roster snapshot from the extension / Reçoit un instantané de l'extension
//
// Nothing is applied until a leader confirms the preview.
func (h *Handler) StageSync(w http.ResponseWriter, r *http.Request) {
	tok, ok := extensionTokenFrom(r.Context())
	if !ok {
		ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	limitRequestBody(w, r, maxImportBytes)

	preview, err := h.container.ExtensionSvc.StageSync(r.Context(), tok, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusAccepted, preview)
}

func (h *Handler) GetSync(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	preview, err := h.container.ExtensionSvc.GetSync(r.Context(), m, r.PathValue("syncID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, preview)
}

// ConfirmSync applies a staged sync / Applique une synchro préparée
func (h *Handler) ConfirmSync(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.ConfirmSyncRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.container.ExtensionSvc.ConfirmSync(r.Context(), m, r.PathValue("syncID"), req.DeactivateMissing)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, res)
}
