package web

import (
	"net/http"
)

// ContactRequest is the public contact form / Formulaire de contact public
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Contact forwards a visitor message to the team / Transmet un message à l'équipe
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.container.ContactSvc.Contact(r.Context(), req.Name, req.Email, req.Message); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, http.StatusOK, "Thanks, your message has been sent.")
}
