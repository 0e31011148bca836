package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/metrics"
)

func newMetrics(t *testing.T) (*metrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return metrics.NewMetrics(reg), reg
}

func TestNewMetrics_Names(t *testing.T) {
	m, reg := newMetrics(t)
	m.RecordLoginAttempt("success")
	m.RecordPosting("billing")
	m.SetBackgroundTaskStatus("token_purge", true)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "chuckbox_auth_login_attempts_total")
	assert.Contains(t, names, "chuckbox_ledger_postings_total")
	assert.Contains(t, names, "chuckbox_worker_task_running")
}

func TestCounters(t *testing.T) {
	m, _ := newMetrics(t)

	tests := []struct {
		name   string
		record func()
		metric prometheus.Collector
		want   float64
	}{
		{"login", func() { m.RecordLoginAttempt("failure"); m.RecordLoginAttempt("failure") }, m.LoginAttempts.WithLabelValues("failure"), 2},
		{"registration", m.RecordRegistration, m.RegistrationTotal, 1},
		{"verification", func() { m.RecordEmailVerification("success") }, m.EmailVerifications.WithLabelValues("success"), 1},
		{"refresh", func() { m.RecordTokenRefresh("binding_failure") }, m.TokenRefreshes.WithLabelValues("binding_failure"), 1},
		{"lockout", m.RecordAccountLockout, m.AccountLockouts, 1},
		{"rate limit", func() { m.RecordRateLimitHit("strict") }, m.RateLimitHits.WithLabelValues("strict"), 1},
		{"csrf", m.RecordCSRFFailure, m.CSRFFailures, 1},
		{"invalid token", m.RecordInvalidToken, m.InvalidTokens, 1},
		{"binding", m.RecordTokenBindingFailure, m.TokenBindingFails, 1},
		{"denial", func() { m.RecordPermissionDenial("finance:write") }, m.PermissionDenials.WithLabelValues("finance:write"), 1},
		{"db connections", func() { m.UpdateDatabaseConnections(7) }, m.DatabaseConnections, 7},
		{"task error", func() { m.RecordTaskRun("backup", errors.New("disk full")) }, m.BackgroundRuns.WithLabelValues("backup", "error"), 1},
		{"roster import", func() { m.RecordRosterImport("csv", "applied") }, m.RosterImports.WithLabelValues("csv", "applied"), 1},
		{"email", func() { m.RecordEmail("invite", "sent") }, m.EmailsSent.WithLabelValues("invite", "sent"), 1},
		{"cache", func() { m.RecordCache("miss") }, m.CacheRequests.WithLabelValues("miss"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.record()
			assert.Equal(t, tt.want, testutil.ToFloat64(tt.metric))
		})
	}
}

func TestRecordHTTPRequest_StatusLabels(t *testing.T) {
	m, _ := newMetrics(t)
	m.RecordHTTPRequest("POST", "POST /api/units/{unitID}/payments", 201)
	m.RecordHTTPRequest("POST", "POST /api/units/{unitID}/payments", 402)
	m.RecordHTTPRequest("GET", "GET /health", 304)
	m.RecordHTTPRequest("GET", "GET /health", 999)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "POST /api/units/{unitID}/payments", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "POST /api/units/{unitID}/payments", "402")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /health", "3xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /health", "unknown")))
}

func TestRecordHTTPDuration(t *testing.T) {
	m, _ := newMetrics(t)
	m.RecordHTTPDuration("GET", "GET /health", 300*time.Millisecond)

	expected := `
# HELP chuckbox_http_request_duration_seconds HTTP request latency by method and route pattern.
# TYPE chuckbox_http_request_duration_seconds histogram
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="0.01"} 0
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="0.05"} 0
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="0.1"} 0
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="0.25"} 0
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="0.5"} 1
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="1"} 1
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="2.5"} 1
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="5"} 1
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="10"} 1
chuckbox_http_request_duration_seconds_bucket{method="GET",path="GET /health",le="+Inf"} 1
chuckbox_http_request_duration_seconds_sum{method="GET",path="GET /health"} 0.3
chuckbox_http_request_duration_seconds_count{method="GET",path="GET /health"} 1
`
	err := testutil.CollectAndCompare(m.HTTPRequestDuration, strings.NewReader(expected), "chuckbox_http_request_duration_seconds")
	assert.NoError(t, err)
}

func TestGauges(t *testing.T) {
	m, _ := newMetrics(t)

	m.IncrementActiveConnections()
	m.IncrementActiveConnections()
	m.DecrementActiveConnections()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))

	m.SetBackgroundTaskStatus("sync_expiry", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackgroundTasks.WithLabelValues("sync_expiry")))
	m.SetBackgroundTaskStatus("sync_expiry", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BackgroundTasks.WithLabelValues("sync_expiry")))
}

func TestRecordPayment(t *testing.T) {
	m, _ := newMetrics(t)
	m.RecordPayment("square", "recorded", 2530)
	m.RecordPayment("square", "declined", 999)
	m.RecordPayment("cash", "recorded", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payments.WithLabelValues("square", "declined")))
	assert.Equal(t, 2530.0, testutil.ToFloat64(m.PaymentVolume.WithLabelValues("square")), "declined payments add no volume")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PaymentVolume.WithLabelValues("cash")))
}
