package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/richblaalid/chuckbox/internal/dto"
	"github.com/richblaalid/chuckbox/internal/service"
)

const registeredMessage = "Registration successful. Please check your email to verify your account."

// Register handles new profile registration / Gère l'inscription
//
// A duplicate email gets the same answer as a new one to prevent enumeration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := h.container.ProfileSvc.Register(r.Context(), service.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	message(w, http.StatusOK, registeredMessage)
}

// Login handles authentication and opens a cookie session / Gère l'authentification
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ipHash, uaHash := h.clientHashes(r)
	profile, pair, err := h.container.AuthSvc.Login(r.Context(), req.Email, req.Password, ipHash, uaHash)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	if err := h.rotateCSRFToken(w); err != nil {
		slog.Error("failed to generate CSRF token", "err", err)
		ErrorResponse(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Tokens are also returned for bearer clients
	jsonResponse(w, map[string]any{
		"profile":       dto.ProfileToDTO(profile),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt,
	})
}

// RefreshToken rotates the refresh token from the cookie or the body
// Renouvelle le refresh token du cookie ou du corps
//
// A cookie refresh must carry the CSRF header like any cookie mutation.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		csrf, err := r.Cookie(csrfCookie)
		if err != nil || csrf.Value == "" || csrf.Value != r.Header.Get(csrfHeader) {
			h.container.Metrics.RecordCSRFFailure()
			ErrorResponse(w, "Forbidden", http.StatusForbidden)
			return
		}
		token = c.Value
	} else {
		var req dto.RefreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		ErrorResponse(w, "refresh token is required", http.StatusBadRequest)
		return
	}

	ipHash, uaHash := h.clientHashes(r)
	pair, err := h.container.AuthSvc.Refresh(r.Context(), token, ipHash, uaHash)
	if err != nil {
		if strings.Contains(err.Error(), "binding") {
			h.container.Metrics.RecordTokenBindingFailure()
		}
		writeError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	if err := h.rotateCSRFToken(w); err != nil {
		slog.Error("failed to rotate CSRF token after refresh", "err", err)
	}
	jsonResponse(w, pair)
}

// Logout revokes every refresh token and clears cookies / Révoque les tokens et efface les cookies
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	profileID, _ := ProfileIDFrom(r.Context())
	if err := h.container.AuthSvc.Logout(r.Context(), profileID); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	message(w, http.StatusOK, "Logged out successfully")
}

// Me returns the current profile / Retourne le profil courant
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profileID, _ := ProfileIDFrom(r.Context())
	profile, err := h.container.ProfileSvc.GetProfile(r.Context(), profileID)
	if err != nil {
		ErrorResponse(w, "profile not found", http.StatusUnauthorized)
		return
	}
	jsonResponse(w, dto.ProfileToDTO(profile))
}

// UpdateMe edits the current profile's details / Modifie les coordonnées du profil courant
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profileID, _ := ProfileIDFrom(r.Context())
	profile, err := h.container.ProfileSvc.UpdateDetails(r.Context(), profileID, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.ProfileToDTO(profile))
}

// ChangePassword changes the password and ends every session / Change le mot de passe
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profileID, _ := ProfileIDFrom(r.Context())
	if err := h.container.PasswordSvc.ChangePassword(r.Context(), profileID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	message(w, http.StatusOK, "Password changed. Please log in again.")
}

// VerifyEmail consumes the emailed verification token / Consomme le token de vérification
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	req := dto.TokenRequest{Token: r.URL.Query().Get("token")}
	if req.Token == "" && r.Method == http.MethodPost && !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		ErrorResponse(w, "missing token", http.StatusBadRequest)
		return
	}

	if err := h.container.VerificationSvc.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, http.StatusOK, "email verified")
}

// ResendVerification always answers the same way / Répond toujours de la même façon
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.container.VerificationSvc.ResendVerification(r.Context(), req.Email); err != nil {
		slog.Warn("resend verification failed", "err", err)
	}
	message(w, http.StatusOK, "If the email exists and is not verified, a verification link has been sent")
}

// RequestPasswordReset always answers the same way / Répond toujours de la même façon
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.container.PasswordSvc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		slog.Error("unexpected error in RequestPasswordReset", "err", err)
	}
	message(w, http.StatusOK, "If an account with that email exists, a password reset link has been sent.")
}

// ResetPassword completes a reset with the emailed token / Termine la réinitialisation
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		ErrorResponse(w, "token and new_password are required", http.StatusBadRequest)
		return
	}

	if err := h.container.PasswordSvc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.rotateCSRFToken(w); err != nil {
		slog.Error("failed to rotate CSRF token after password reset", "err", err)
	}
	message(w, http.StatusOK, "Password has been reset successfully. You can now login with your new password.")
}
