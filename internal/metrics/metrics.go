// Package metrics exposes the Prometheus collectors of the server. Every
// series lives under the "chuckbox" namespace, split by subsystem.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chuckbox"

// Metrics holds all Prometheus metric collectors / Contient tous les collecteurs de métriques Prometheus
type Metrics struct {
	// auth
	LoginAttempts      *prometheus.CounterVec
	RegistrationTotal  prometheus.Counter
	EmailVerifications *prometheus.CounterVec
	TokenRefreshes     *prometheus.CounterVec
	AccountLockouts    prometheus.Counter

	// http
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveConnections   prometheus.Gauge

	// security
	RateLimitHits     *prometheus.CounterVec
	CSRFFailures      prometheus.Counter
	InvalidTokens     prometheus.Counter
	TokenBindingFails prometheus.Counter
	PermissionDenials *prometheus.CounterVec

	// database and workers
	DatabaseConnections prometheus.Gauge
	BackgroundTasks     *prometheus.GaugeVec
	BackgroundRuns      *prometheus.CounterVec

	// Domain metrics / Métriques métier
	LedgerPostings *prometheus.CounterVec
	Payments       *prometheus.CounterVec
	PaymentVolume  *prometheus.CounterVec
	RosterImports  *prometheus.CounterVec
	EmailsSent     *prometheus.CounterVec
	CacheRequests  *prometheus.CounterVec
}

// builder shortens collector declarations for one registerer.
type builder struct{ f promauto.Factory }

func (b builder) counter(subsystem, name, help string) prometheus.Counter {
	return b.f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

func (b builder) counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return b.f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

func (b builder) gauge(subsystem, name, help string) prometheus.Gauge {
	return b.f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

// NewMetrics registers every collector on reg, the default registry when nil
// Enregistre tous les collecteurs sur reg, le registre par défaut si nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	b := builder{f: promauto.With(reg)}

	return &Metrics{
		LoginAttempts:      b.counterVec("auth", "login_attempts_total", "Login attempts by status (success, failure, locked, unverified).", "status"),
		RegistrationTotal:  b.counter("auth", "registrations_total", "Profiles registered."),
		EmailVerifications: b.counterVec("auth", "email_verifications_total", "Email verification attempts by status.", "status"),
		TokenRefreshes:     b.counterVec("auth", "token_refreshes_total", "Refresh token rotations by status.", "status"),
		AccountLockouts:    b.counter("auth", "account_lockouts_total", "Profiles locked after repeated failed logins."),

		HTTPRequestsTotal: b.counterVec("http", "requests_total", "HTTP requests by method, route pattern and status code.", "method", "path", "status_code"),
		HTTPRequestDuration: b.f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		ActiveConnections: b.gauge("http", "active_connections", "Requests currently being served."),

		RateLimitHits:     b.counterVec("security", "rate_limit_hits_total", "Requests refused by a rate limiter, by limiter.", "endpoint"),
		CSRFFailures:      b.counter("security", "csrf_failures_total", "Cookie requests refused for a missing or wrong CSRF token."),
		InvalidTokens:     b.counter("security", "invalid_tokens_total", "Invalid or expired access and extension tokens."),
		TokenBindingFails: b.counter("security", "token_binding_failures_total", "Refresh tokens presented from another IP or user agent."),
		PermissionDenials: b.counterVec("security", "permission_denials_total", "Permission checks that failed, by permission.", "permission"),

		DatabaseConnections: b.gauge("database", "connections_open", "Open connections in the database pool."),
		BackgroundTasks: b.f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "task_running",
			Help:      "Background task state (1 running, 0 stopped).",
		}, []string{"task_name"}),
		BackgroundRuns: b.counterVec("worker", "task_runs_total", "Background task runs by task and outcome.", "task_name", "outcome"),

		LedgerPostings: b.counterVec("ledger", "postings_total", "Journal entries posted by kind.", "kind"),
		Payments:       b.counterVec("payments", "total", "Payments by method and status (recorded, declined, failed).", "method", "status"),
		PaymentVolume:  b.counterVec("payments", "volume_cents_total", "Gross cents of recorded payments by method.", "method"),
		RosterImports:  b.counterVec("roster", "imports_total", "Roster imports and extension syncs by source and outcome.", "source", "outcome"),
		EmailsSent:     b.counterVec("email", "sent_total", "Outbound emails by template and status.", "template", "status"),
		CacheRequests:  b.counterVec("cache", "requests_total", "Catalog cache lookups by result (hit, miss).", "result"),
	}
}

// RecordLoginAttempt counts a login by status / Compte une connexion par statut
func (m *Metrics) RecordLoginAttempt(status string) {
	m.LoginAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRegistration() {
	m.RegistrationTotal.Inc()
}

func (m *Metrics) RecordEmailVerification(status string) {
	m.EmailVerifications.WithLabelValues(status).Inc()
}

// RecordTokenRefresh counts a rotation: success, invalid, expired or binding_failure
func (m *Metrics) RecordTokenRefresh(status string) {
	m.TokenRefreshes.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordAccountLockout() {
	m.AccountLockouts.Inc()
}

// RecordHTTPRequest counts a response; path is the route pattern, not the raw URL
// Compte une réponse ; path est le motif de route, pas l'URL brute
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(statusCode)).Inc()
}

func (m *Metrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementActiveConnections() {
	m.ActiveConnections.Inc()
}

func (m *Metrics) DecrementActiveConnections() {
	m.ActiveConnections.Dec()
}

func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RecordCSRFFailure() {
	m.CSRFFailures.Inc()
}

func (m *Metrics) RecordInvalidToken() {
	m.InvalidTokens.Inc()
}

func (m *Metrics) RecordTokenBindingFailure() {
	m.TokenBindingFails.Inc()
}

// RecordPermissionDenial counts a refused permission / Compte un refus de permission
func (m *Metrics) RecordPermissionDenial(permission string) {
	m.PermissionDenials.WithLabelValues(permission).Inc()
}

func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// SetBackgroundTaskStatus flags a worker loop as running or stopped
func (m *Metrics) SetBackgroundTaskStatus(taskName string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.BackgroundTasks.WithLabelValues(taskName).Set(v)
}

// RecordTaskRun counts a background task run / Compte une exécution de tâche de fond
func (m *Metrics) RecordTaskRun(taskName string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.BackgroundRuns.WithLabelValues(taskName, outcome).Inc()
}

// RecordPosting counts a journal entry / Compte une écriture
func (m *Metrics) RecordPosting(kind string) {
	m.LedgerPostings.WithLabelValues(kind).Inc()
}

// RecordPayment counts a payment, adding its volume once recorded
// Compte un paiement et ajoute son volume une fois enregistré
func (m *Metrics) RecordPayment(method, status string, grossCents int64) {
	m.Payments.WithLabelValues(method, status).Inc()
	if status == "recorded" && grossCents > 0 {
		m.PaymentVolume.WithLabelValues(method).Add(float64(grossCents))
	}
}

func (m *Metrics) RecordRosterImport(source, outcome string) {
	m.RosterImports.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) RecordEmail(template, status string) {
	m.EmailsSent.WithLabelValues(template, status).Inc()
}

func (m *Metrics) RecordCache(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

// statusLabel keeps the codes the API answers with and buckets the rest by class
// Garde les codes de l'API, regroupe les autres par classe
func statusLabel(code int) string {
	switch code {
	case 200, 201, 202, 204, 400, 401, 402, 403, 404, 409, 413, 422, 429, 500, 502, 503:
		return strconv.Itoa(code)
	}
	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}
	return "unknown"
}
