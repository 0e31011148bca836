package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/dto"
)

// statsScanLimit bounds the profiles read for GetProfileStats / Borne les profils lus pour les statistiques
const statsScanLimit = 100000

// ListProfiles returns paginated list of profiles / Retourne la liste paginée des profils
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	// Max 100 per page
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, 100)
	}
	offset := (page - 1) * limit

	profiles, total, err := h.container.ProfileSvc.ListProfiles(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, map[string]any{
		"profiles":   dto.ProfilesToDTO(profiles),
		"pagination": dto.NewPagination(total, page, limit),
	})
}

// DeleteProfile deletes a profile by ID / Supprime un profil par ID
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if self, _ := ProfileIDFrom(r.Context()); self == profileID {
		ErrorResponse(w, "cannot delete your own profile", http.StatusConflict)
		return
	}

	if err := h.container.ProfileSvc.DeleteProfile(r.Context(), profileID); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, http.StatusOK, "Profile deleted successfully")
}

// UpdateSystemRole grants or removes installation admin / Accorde ou retire l'admin système
//
//	{"role": "admin"}
func (h *Handler) UpdateSystemRole(w http.ResponseWriter, r *http.Request) {
	profileID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.SystemRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.container.ProfileSvc.UpdateSystemRole(r.Context(), profileID, domain.SystemRole(req.Role)); err != nil {
		writeError(w, r, err)
		return
	}

	// Role changes affect permissions / Les changements de rôle affectent les permissions
	if err := h.rotateCSRFToken(w); err != nil {
		slog.Error("failed to rotate CSRF token after role update", "err", err)
	}
	message(w, http.StatusOK, "System role updated successfully")
}

// GetProfileStats returns profile statistics / Retourne les statistiques des profils
func (h *Handler) GetProfileStats(w http.ResponseWriter, r *http.Request) {
	profiles, total, err := h.container.ProfileSvc.ListProfiles(r.Context(), 0, statsScanLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	verified, locked := 0, 0
	roles := map[string]int{
		string(domain.SystemRoleUser):  0,
		string(domain.SystemRoleAdmin): 0,
	}
	for _, p := range profiles {
		if p.EmailVerified {
			verified++
		}
		if p.IsLocked() {
			locked++
		}
		roles[string(p.SystemRole)]++
	}

	jsonResponse(w, map[string]any{
		"total_profiles":    total,
		"verified_profiles": verified,
		"locked_profiles":   locked,
		"roles":             roles,
	})
}
