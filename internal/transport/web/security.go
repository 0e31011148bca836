package web

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/richblaalid/chuckbox/internal/service/auth"
)

// Session cookie names / Noms des cookies de session
const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	csrfCookie    = "csrf_token"
)

// generateCSRFToken creates a random token for the double-submit cookie pattern:
// sent in a readable cookie, echoed back in X-CSRF-Token on mutating requests.
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// sha256hex computes SHA-256 hash of string / Calcule le hash SHA-256 d'une chaîne
func sha256hex(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// clientHashes returns the IP and User-Agent hashes refresh tokens are bound to
// Retourne les hash IP et User-Agent liés aux tokens de rafraîchissement
func (h *Handler) clientHashes(r *http.Request) (ipHash, uaHash string) {
	ip := getIPWithTrustedProxies(r, h.container.Config.Security.TrustedProxies)
	return sha256hex(ip), sha256hex(r.Header.Get("User-Agent"))
}

func (h *Handler) cookie(name, value string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	conf := h.container.Config.Auth
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     conf.CookiePath,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: httpOnly,
		Secure:   conf.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Domain:   conf.CookieDomain,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if maxAge < 0 {
		c.MaxAge = -1
	}
	return c
}

// setAuthCookies sets access and refresh token cookies / Définit les cookies d'accès et de rafraîchissement
func (h *Handler) setAuthCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	conf := h.container.Config.Auth
	http.SetCookie(w, h.cookie(accessCookie, pair.AccessToken, conf.AccessTokenDuration, true))
	http.SetCookie(w, h.cookie(refreshCookie, pair.RefreshToken, conf.RefreshTokenDuration, true))
}

// rotateCSRFToken issues a new CSRF cookie readable by scripts / Émet un nouveau cookie CSRF
func (h *Handler) rotateCSRFToken(w http.ResponseWriter) error {
	token, err := generateCSRFToken()
	if err != nil {
		return err
	}
	http.SetCookie(w, h.cookie(csrfCookie, token, h.container.Config.Auth.RefreshTokenDuration, false))
	return nil
}

// clearSessionCookies expires every session cookie / Expire tous les cookies de session
func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(accessCookie, "", -1, true))
	http.SetCookie(w, h.cookie(refreshCookie, "", -1, true))
	http.SetCookie(w, h.cookie(csrfCookie, "", -1, false))
}
