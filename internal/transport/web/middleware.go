package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/metrics"
	"github.com/richblaalid/chuckbox/internal/service"
	"github.com/richblaalid/chuckbox/internal/service/auth"
)

const (
	bearerPrefix    = "Bearer "
	RequestIDHeader = "X-Request-ID"
	csrfHeader      = "X-CSRF-Token"
)

// cookieSessionKey marks requests authenticated by the access_token cookie
const cookieSessionKey = ContextKey("cookie_session")

// RequestID generates unique request ID / Génère un ID unique pour la requête
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts request ID from context / Extrait l'ID de la requête du contexte
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// Logging logs HTTP requests and prevents token leaks / Enregistre les requêtes et prévient les fuites
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		query := r.URL.RawQuery
		if strings.Contains(query, "access_token=") || strings.Contains(query, "refresh_token=") ||
			strings.Contains(query, "Bearer") || strings.Contains(query, service.ExtensionTokenPrefix) {
			slog.Error("token leak detected", "path", r.URL.Path, "ip", r.RemoteAddr)
			ErrorResponse(w, "forbidden", http.StatusForbidden)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.Info("request",
			"request_id", GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// MetricsMiddleware tracks HTTP request metrics / Suit les métriques des requêtes HTTP
//
// Requests are labelled with the matched route pattern to bound cardinality.
func (m *Middleware) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.metrics.IncrementActiveConnections()
		defer m.metrics.DecrementActiveConnections()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.metrics.RecordHTTPRequest(r.Method, path, rw.statusCode)
		m.metrics.RecordHTTPDuration(r.Method, path, time.Since(start))
	})
}

// Timeout adds request timeout / Ajoute un timeout aux requêtes
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, duration, `{"error":"request timeout"}`)
	}
}

// Middleware holds middleware configuration and dependencies / Contient la configuration middleware
type Middleware struct {
	conf           *config.Config
	globalLimiter  *RateLimiter
	strictLimiter  *RateLimiter
	userLimiter    *RateLimiter
	resendLimiter  *RateLimiter
	contactLimiter *RateLimiter
	metrics        *metrics.Metrics
	profiles       *service.ProfileService
	access         *service.Access
	extensions     *service.ExtensionService
}

// responseWriter wraps ResponseWriter to capture status / Encapsule ResponseWriter pour capturer le statut
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures status code / Capture le code de statut
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// NewMiddleware creates middleware with rate limiters / Crée le middleware avec limiteurs
func NewMiddleware(ctx context.Context, c *app.Container) *Middleware {
	conf := c.Config
	mw := &Middleware{
		conf:       conf,
		metrics:    c.Metrics,
		profiles:   c.ProfileSvc,
		access:     c.Access,
		extensions: c.ExtensionSvc,
	}

	if conf.RateLimiter.Enabled {
		mw.globalLimiter = NewRateLimiter(ctx, conf.RateLimiter.RPS, conf.RateLimiter.Burst)

		strictRPS := conf.RateLimiter.RPS
		strictBurst := conf.RateLimiter.Burst
		if conf.IsProduction() {
			strictRPS = strictRPS / 2
			if strictBurst > 2 {
				strictBurst = strictBurst / 2
			}
		}
		mw.strictLimiter = NewRateLimiter(ctx, strictRPS, strictBurst)
		mw.userLimiter = NewRateLimiter(ctx, conf.RateLimiter.RPS*2, conf.RateLimiter.Burst*2)
		mw.resendLimiter = NewRateLimiter(ctx, 0.3, 3)

		contactRPS, contactBurst := conf.Contact.RPS, conf.Contact.Burst
		if contactRPS <= 0 || contactBurst <= 0 {
			contactRPS, contactBurst = strictRPS, strictBurst
		}
		mw.contactLimiter = NewRateLimiter(ctx, contactRPS, contactBurst)
	}

	return mw
}

// Stop ends the limiter cleanup goroutines / Arrête le nettoyage des limiteurs
func (m *Middleware) Stop() {
	for _, l := range []*RateLimiter{m.globalLimiter, m.strictLimiter, m.userLimiter, m.resendLimiter, m.contactLimiter} {
		if l != nil {
			l.Stop()
		}
	}
}

// Auth validates JWT tokens from the access_token cookie or a bearer header
// Valide les tokens JWT du cookie access_token ou d'un en-tête bearer
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenStr string
		fromCookie := false

		if cookie, err := r.Cookie(accessCookie); err == nil && cookie.Value != "" {
			tokenStr = cookie.Value
			fromCookie = true
		} else {
			authorization := r.Header.Get("Authorization")
			if !strings.HasPrefix(authorization, bearerPrefix) {
				ErrorResponse(w, "authentication required", http.StatusUnauthorized)
				return
			}
			tokenStr = strings.TrimPrefix(authorization, bearerPrefix)
		}

		claims, err := auth.ValidateJWT(tokenStr, m.conf.Auth.JWTSecret)
		if err != nil {
			m.metrics.RecordInvalidToken()
			ErrorResponse(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		profileID, err := claims.ProfileID()
		if err != nil {
			slog.Error("failed to parse profile ID from token", "subject", claims.Subject, "err", err)
			ErrorResponse(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		ctx = context.WithValue(ctx, profileIDKey, profileID)
		ctx = context.WithValue(ctx, cookieSessionKey, fromCookie)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Cors handles CORS headers / Gère les en-têtes CORS
func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, allowed := range m.conf.Cors.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-CSRF-Token, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders adds security headers / Ajoute les en-têtes de sécurité
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// JSON API: nothing to load, nothing to frame
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store")

		if m.conf.IsProd() {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}

		next.ServeHTTP(w, r)
	})
}

// CSRF enforces the double-submit cookie on mutating cookie-session requests
// Impose le double envoi du token CSRF sur les requêtes mutantes par cookie
func (m *Middleware) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if fromCookie, _ := r.Context().Value(cookieSessionKey).(bool); !fromCookie {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookie)
		headerToken := r.Header.Get(csrfHeader)
		if err != nil || cookie.Value == "" || headerToken == "" || cookie.Value != headerToken {
			m.metrics.RecordCSRFFailure()
			slog.Warn("CSRF token mismatch", "path", r.URL.Path, "request_id", GetRequestID(r.Context()))
			ErrorResponse(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireSystemAdmin restricts a route to installation administrators
// Réserve une route aux administrateurs de l'installation
func (m *Middleware) RequireSystemAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := ProfileIDFrom(r.Context())
		if !ok {
			slog.Error("RequireSystemAdmin: profile not found in context - Auth middleware not applied?")
			ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Read from the store so a demotion applies before the token expires
		profile, err := m.profiles.GetProfile(r.Context(), profileID)
		if err != nil {
			if errors.Is(err, service.ErrProfileNotFound) {
				ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			writeError(w, r, err)
			return
		}
		if !profile.IsSystemAdmin() {
			m.metrics.RecordPermissionDenial("system:admin")
			slog.Warn("permission denied", "profile_id", profileID, "permission", "system:admin", "path", r.URL.Path)
			ErrorResponse(w, "Insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireUnitPermission loads the caller's membership in {unitID} and checks perm
// Charge l'adhésion de l'appelant dans {unitID} et vérifie la permission
//
// Non-members get 404 so unit IDs cannot be probed.
func (m *Middleware) RequireUnitPermission(perm domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, ok := ProfileIDFrom(r.Context())
			if !ok {
				slog.Error("RequireUnitPermission: profile not found in context - Auth middleware not applied?")
				ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			unitID, err := pathID(r, "unitID")
			if err != nil {
				writeError(w, r, err)
				return
			}

			membership, err := m.access.Membership(r.Context(), unitID, profileID)
			if err != nil {
				if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
					ErrorResponse(w, "unit not found", http.StatusNotFound)
					return
				}
				writeError(w, r, err)
				return
			}

			if !membership.Can(perm) {
				m.metrics.RecordPermissionDenial(perm.String())
				slog.Warn("permission denied",
					"profile_id", profileID,
					"unit_id", unitID,
					"permission", perm,
					"path", r.URL.Path,
					"method", r.Method,
				)
				ErrorResponse(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), membershipKey, membership)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtensionAuth authenticates the roster extension by its bearer cbx_ token
// Authentifie l'extension navigateur par son token bearer cbx_
func (m *Middleware) ExtensionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := r.Header.Get("Authorization")
		plain := strings.TrimPrefix(authorization, bearerPrefix)
		if !strings.HasPrefix(authorization, bearerPrefix) || !strings.HasPrefix(plain, service.ExtensionTokenPrefix) {
			ErrorResponse(w, "extension token required", http.StatusUnauthorized)
			return
		}

		tok, membership, err := m.extensions.AuthenticateExtension(r.Context(), plain)
		if err != nil {
			m.metrics.RecordInvalidToken()
			if errorStatus(err) == http.StatusInternalServerError {
				writeError(w, r, err)
				return
			}
			ErrorResponse(w, "invalid or expired extension token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), extensionTokenKey, tok)
		ctx = context.WithValue(ctx, membershipKey, membership)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
