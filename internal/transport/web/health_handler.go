package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthResponse represents the response structure for health check endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`            // "ok" or "error"
	Timestamp time.Time         `json:"timestamp"`         // Current server time
	Checks    map[string]string `json:"checks,omitempty"`  // Individual component health
	Version   string            `json:"version,omitempty"` // Application version
	Uptime    string            `json:"uptime,omitempty"`
}

// Version is set at build time with -ldflags "-X .../web.Version=..."
var Version = "dev"

var startTime = time.Now()

// HealthCheck handles the /health endpoint.
// It always answers 200 while the process runs and does NOT check dependencies;
// use /readiness for that.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   Version,
		Uptime:    formatUptime(time.Since(startTime)),
	})
}

// ReadinessCheck handles the /readiness endpoint.
// Returns 503 Service Unavailable when the database or the cache does not answer.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "cache": "ok"}
	status, code := "ok", http.StatusOK
	if err := h.container.Ping(ctx); err != nil {
		// Ping prefixes the failing component / Ping préfixe le composant en échec
		component, _, _ := strings.Cut(err.Error(), ":")
		checks[component] = "error"
		status, code = "error", http.StatusServiceUnavailable
	}
	if h.container.Gateway == nil {
		checks["payments"] = "disabled"
	}

	jsonStatus(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// formatUptime converts a duration into a human-readable uptime string.
// Examples:
//   - 2h 15m 30s
//   - 1d 5h 23m
//   - 45s
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return joinUnits(days, "d", hours, "h", minutes, "m")
	case hours > 0:
		return joinUnits(hours, "h", minutes, "m", seconds, "s")
	case minutes > 0:
		return joinUnits(minutes, "m", seconds, "s")
	}
	return fmt.Sprintf("%ds", seconds)
}

// joinUnits formats value/unit pairs, skipping zeros / Formate les paires valeur/unité non nulles
func joinUnits(pairs ...any) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := pairs[i].(int); v > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", v, pairs[i+1]))
		}
	}
	return strings.Join(parts, " ")
}
