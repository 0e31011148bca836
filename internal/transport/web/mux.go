package web

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/domain"
)

// requestTimeout bounds every request / Borne chaque requête
const requestTimeout = 30 * time.Second

// NewMux creates and configures the HTTP router / Crée et configure le routeur HTTP
//
// The returned middleware owns the rate limiter goroutines; call Stop on shutdown.
func NewMux(ctx context.Context, h *Handler, container *app.Container) (http.Handler, *Middleware) {
	mux := http.NewServeMux()
	mw := NewMiddleware(ctx, container)

	// Session routes: cookie or bearer, CSRF on cookie mutations, per-profile limit
	session := func(f http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
		return chain(f, append([]func(http.Handler) http.Handler{mw.Auth, mw.CSRF, mw.RateLimitByUser}, extra...)...)
	}
	// Unit routes additionally resolve the caller's membership
	unit := func(perm domain.Permission, f http.HandlerFunc) http.Handler {
		return session(f, mw.RequireUnitPermission(perm))
	}
	admin := func(f http.HandlerFunc) http.Handler {
		return session(f, mw.RequireSystemAdmin)
	}

	// Health check endpoints (no auth, no rate limiting for load balancers)
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /readiness", h.ReadinessCheck)

	// Prometheus metrics (system admins only)
	metricsHandler := promhttp.HandlerFor(container.Gatherer, promhttp.HandlerOpts{})
	mux.Handle("GET /metrics", chain(metricsHandler.ServeHTTP, mw.Auth, mw.RequireSystemAdmin))

	// Authentication (public, strictly limited) / Authentification (publique, limitée)
	mux.Handle("POST /api/register", chain(h.Register, mw.RateLimitStrict))
	mux.Handle("POST /api/login", chain(h.Login, mw.RateLimitStrict))
	mux.Handle("POST /api/refresh", chain(h.RefreshToken, mw.RateLimitStrict))
	mux.Handle("GET /api/verify-email", chain(h.VerifyEmail, mw.RateLimitStrict))
	mux.Handle("POST /api/verify-email", chain(h.VerifyEmail, mw.RateLimitStrict))
	mux.Handle("POST /api/resend-verification", chain(h.ResendVerification, mw.RateLimitResend))
	mux.Handle("POST /api/request-password-reset", chain(h.RequestPasswordReset, mw.RateLimitStrict))
	mux.Handle("POST /api/reset-password", chain(h.ResetPassword, mw.RateLimitStrict))
	mux.Handle("POST /api/contact", chain(h.Contact, mw.RateLimitContact))

	// Current profile
	mux.Handle("GET /api/me", session(h.Me))
	mux.Handle("PATCH /api/me", session(h.UpdateMe))
	mux.Handle("POST /api/me/password", session(h.ChangePassword))
	mux.Handle("POST /api/logout", session(h.Logout))

	// Units and members / Unités et membres
	mux.Handle("GET /api/units", session(h.ListMyUnits))
	mux.Handle("POST /api/units", session(h.CreateUnit))
	mux.Handle("POST /api/invites/accept", session(h.AcceptInvite))
	mux.Handle("GET /api/units/{unitID}", unit(domain.PermissionUnitRead, h.GetUnit))
	mux.Handle("PUT /api/units/{unitID}/fees", unit(domain.PermissionFinanceSettings, h.UpdateFees))
	mux.Handle("GET /api/units/{unitID}/members", unit(domain.PermissionUnitRead, h.ListMembers))
	mux.Handle("POST /api/units/{unitID}/invites", unit(domain.PermissionMembersManage, h.InviteMember))
	mux.Handle("PATCH /api/units/{unitID}/members/{membershipID}", unit(domain.PermissionMembersManage, h.ChangeMemberRole))
	mux.Handle("DELETE /api/units/{unitID}/members/{membershipID}", unit(domain.PermissionMembersManage, h.RemoveMember))

	// Roster; guardians only see their own scouts / Effectif
	mux.Handle("GET /api/units/{unitID}/scouts", unit(domain.PermissionUnitRead, h.ListScouts))
	mux.Handle("POST /api/units/{unitID}/scouts", unit(domain.PermissionRosterWrite, h.CreateScout))
	mux.Handle("GET /api/units/{unitID}/scouts/{scoutID}", unit(domain.PermissionUnitRead, h.GetScout))
	mux.Handle("PUT /api/units/{unitID}/scouts/{scoutID}", unit(domain.PermissionRosterWrite, h.UpdateScout))
	mux.Handle("DELETE /api/units/{unitID}/scouts/{scoutID}", unit(domain.PermissionRosterWrite, h.DeactivateScout))
	mux.Handle("GET /api/units/{unitID}/scouts/{scoutID}/guardians", unit(domain.PermissionUnitRead, h.ListGuardians))
	mux.Handle("POST /api/units/{unitID}/scouts/{scoutID}/guardians", unit(domain.PermissionRosterWrite, h.AddGuardian))
	mux.Handle("GET /api/units/{unitID}/patrols", unit(domain.PermissionUnitRead, h.ListPatrols))
	mux.Handle("POST /api/units/{unitID}/patrols", unit(domain.PermissionRosterWrite, h.CreatePatrol))
	mux.Handle("DELETE /api/units/{unitID}/patrols/{patrolID}", unit(domain.PermissionRosterWrite, h.DeletePatrol))
	mux.Handle("POST /api/units/{unitID}/roster/import", unit(domain.PermissionRosterWrite, h.ImportRoster))

	// Browser extension / Extension navigateur
	mux.Handle("GET /api/units/{unitID}/extension-tokens", unit(domain.PermissionRosterSync, h.ListExtensionTokens))
	mux.Handle("POST /api/units/{unitID}/extension-tokens", unit(domain.PermissionRosterSync, h.CreateExtensionToken))
	mux.Handle("DELETE /api/units/{unitID}/extension-tokens/{tokenID}", unit(domain.PermissionRosterSync, h.RevokeExtensionToken))
	mux.Handle("GET /api/units/{unitID}/syncs/{syncID}", unit(domain.PermissionRosterSync, h.GetSync))
	mux.Handle("POST /api/units/{unitID}/syncs/{syncID}/confirm", unit(domain.PermissionRosterSync, h.ConfirmSync))
	mux.Handle("POST /api/extension/sync", chain(h.StageSync, mw.ExtensionAuth))

	// Finance / Finances
	mux.Handle("GET /api/units/{unitID}/accounts", unit(domain.PermissionFinanceSelf, h.ListAccounts))
	mux.Handle("GET /api/units/{unitID}/accounts/{accountID}", unit(domain.PermissionFinanceSelf, h.GetAccount))
	mux.Handle("GET /api/units/{unitID}/accounts/{accountID}/statement", unit(domain.PermissionFinanceSelf, h.Statement))
	mux.Handle("GET /api/units/{unitID}/accounts/{accountID}/payments", unit(domain.PermissionFinanceSelf, h.ListAccountPayments))
	mux.Handle("POST /api/units/{unitID}/accounts/{accountID}/apply-funds", unit(domain.PermissionFinanceWrite, h.ApplyFunds))
	mux.Handle("POST /api/units/{unitID}/accounts/{accountID}/fundraiser", unit(domain.PermissionFinanceWrite, h.CreditFundraiser))
	mux.Handle("GET /api/units/{unitID}/scouts/{scoutID}/account", unit(domain.PermissionFinanceSelf, h.ScoutAccount))
	mux.Handle("GET /api/units/{unitID}/billing", unit(domain.PermissionFinanceRead, h.ListBilling))
	mux.Handle("POST /api/units/{unitID}/billing", unit(domain.PermissionFinanceWrite, h.CreateBilling))
	mux.Handle("POST /api/units/{unitID}/billing/{billingID}/void", unit(domain.PermissionFinanceWrite, h.VoidBilling))
	mux.Handle("POST /api/units/{unitID}/payments", unit(domain.PermissionPaymentsCollect, h.RecordPayment))
	mux.Handle("POST /api/units/{unitID}/charges/{chargeID}/paid", unit(domain.PermissionPaymentsCollect, h.MarkChargePaid))
	mux.Handle("GET /api/units/{unitID}/payments/quote", unit(domain.PermissionPaymentsMake, h.QuotePayment))
	mux.Handle("POST /api/units/{unitID}/payments/square", unit(domain.PermissionPaymentsMake, h.PayWithSquare))
	mux.Handle("GET /api/units/{unitID}/reconcile", unit(domain.PermissionFinanceRead, h.Reconcile))

	// Advancement / Avancement
	mux.Handle("GET /api/badges", session(h.ListBadges))
	mux.Handle("GET /api/badges/{code}", session(h.GetBadge))
	mux.Handle("GET /api/units/{unitID}/scouts/{scoutID}/badges", unit(domain.PermissionAdvancementRead, h.ScoutProgress))
	mux.Handle("POST /api/units/{unitID}/scouts/{scoutID}/badges", unit(domain.PermissionAdvancementWrite, h.StartBadge))
	mux.Handle("POST /api/units/{unitID}/scouts/{scoutID}/badges/{code}/requirements", unit(domain.PermissionAdvancementWrite, h.RecordRequirement))
	mux.Handle("POST /api/units/{unitID}/scouts/{scoutID}/badges/{code}/complete", unit(domain.PermissionAdvancementWrite, h.CompleteBadge))

	// System administration / Administration système
	mux.Handle("GET /api/admin/profiles", admin(h.ListProfiles))
	mux.Handle("DELETE /api/admin/profiles/{id}", admin(h.DeleteProfile))
	mux.Handle("PATCH /api/admin/profiles/{id}/role", admin(h.UpdateSystemRole))
	mux.Handle("GET /api/admin/stats", admin(h.GetProfileStats))
	mux.Handle("POST /api/admin/badges", admin(h.ImportBadges))

	// Global middlewares - applied in reverse order / Middlewares globaux appliqués en ordre inverse
	var handler http.Handler = mux
	handler = mw.MetricsMiddleware(handler) // Innermost, sees the matched pattern
	handler = mw.RateLimit(handler)
	handler = mw.SecurityHeaders(handler)
	handler = mw.Cors(handler)
	handler = Timeout(requestTimeout)(handler)
	handler = Logging(handler)   // Logging includes request ID
	handler = RequestID(handler) // RequestID first - generates ID for all middleware

	return handler, mw
}

// chain applies middleware to HTTP handler / Applique les middlewares au gestionnaire HTTP
func chain(f http.HandlerFunc, middlewares ...func(http.Handler) http.Handler) http.Handler {
	var handler http.Handler = f
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
