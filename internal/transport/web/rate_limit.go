package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorIdle is how long an unseen visitor is kept / Durée de conservation d'un visiteur inactif
const visitorIdle = 3 * time.Minute

// RateLimiter manages rate limiters for visitors based on their IP address or profile ID.
type RateLimiter struct {
	visitors map[string]*Visitor // Keyed by IP hash or "profile_<id>"
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	ctx      context.Context
	cancel   context.CancelFunc
}

// Visitor represents a single visitor and their associated rate limiter.
type Visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter and starts the cleanup of idle visitors.
// The cleanup goroutine ends with ctx or Stop.
func NewRateLimiter(ctx context.Context, rps float64, burst int) *RateLimiter {
	cleanupCtx, cancel := context.WithCancel(ctx)

	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		ctx:      cleanupCtx,
		cancel:   cancel,
	}

	go rl.cleanupVisitors()

	return rl
}

// Stop gracefully stops the rate limiter's cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.cancel()
}

// getVisitor retrieves or creates the limiter of one identifier / Récupère ou crée le limiteur d'un visiteur
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[key] = &Visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes visitors idle for more than visitorIdle every 5 minutes.
func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.prune(time.Now())
		case <-rl.ctx.Done():
			return
		}
	}
}

// prune drops idle visitors / Supprime les visiteurs inactifs
func (rl *RateLimiter) prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// getIPWithTrustedProxies extracts the client IP with trusted proxy validation.
// Proxy headers are only trusted when RemoteAddr is in trustedProxies.
//
// X-Forwarded-For format is "client, proxy1, proxy2"; the first IP is the client.
func getIPWithTrustedProxies(r *http.Request, trustedProxies []string) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without port
		remoteIP = r.RemoteAddr
	}

	if len(trustedProxies) == 0 || !slices.Contains(trustedProxies, remoteIP) {
		return remoteIP
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	return remoteIP
}

// hashIP creates a SHA-256 hash of an IP address to avoid storing raw IP addresses.
func hashIP(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])
}

// clientKey is the hashed client IP / Hash de l'IP du client
func (mw *Middleware) clientKey(r *http.Request) string {
	return hashIP(getIPWithTrustedProxies(r, mw.conf.Security.TrustedProxies))
}

// limit builds a middleware over one limiter / Construit un middleware sur un limiteur
func (mw *Middleware) limit(name string, limiter func() *RateLimiter, key func(*http.Request) string, msg string, retryAfter int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := limiter()
			if !mw.conf.RateLimiter.Enabled || l == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !l.getVisitor(key(r)).Allow() {
				mw.metrics.RecordRateLimitHit(name)
				sendRateLimitErrorAdvanced(w, msg, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const tooMany = "Too many requests. Please try again later."

// RateLimit applies the global per-IP limit to every request / Limite globale par IP
func (mw *Middleware) RateLimit(next http.Handler) http.Handler {
	return mw.limit("global", func() *RateLimiter { return mw.globalLimiter }, mw.clientKey, tooMany, 60)(next)
}

// RateLimitStrict protects authentication endpoints / Protège les routes d'authentification
func (mw *Middleware) RateLimitStrict(next http.Handler) http.Handler {
	return mw.limit("strict", func() *RateLimiter { return mw.strictLimiter }, mw.clientKey, tooMany, 60)(next)
}

// RateLimitByUser applies rate limit per profile, per IP when anonymous
// Applique une limite par profil, par IP pour les anonymes
func (mw *Middleware) RateLimitByUser(next http.Handler) http.Handler {
	key := func(r *http.Request) string {
		if id, ok := ProfileIDFrom(r.Context()); ok {
			return fmt.Sprintf("profile_%d", id)
		}
		return mw.clientKey(r)
	}
	return mw.limit("user", func() *RateLimiter { return mw.userLimiter }, key, tooMany, 60)(next)
}

// RateLimitResend throttles verification email resends / Limite les renvois d'email de vérification
func (mw *Middleware) RateLimitResend(next http.Handler) http.Handler {
	return mw.limit("resend", func() *RateLimiter { return mw.resendLimiter }, mw.clientKey,
		"You can only resend verification emails 3 times per 10 seconds. Please wait.", 10)(next)
}

// RateLimitContact throttles the public contact form / Limite le formulaire de contact public
func (mw *Middleware) RateLimitContact(next http.Handler) http.Handler {
	return mw.limit("contact", func() *RateLimiter { return mw.contactLimiter }, mw.clientKey,
		"Too many messages. Please try again later.", 60)(next)
}

// RateLimitErrorResponse defines a structured response for rate limiting errors.
type RateLimitErrorResponse struct {
	Error      string    `json:"error"`               // Machine-readable code
	Message    string    `json:"message"`             // Human-readable message
	Code       int       `json:"code"`                // HTTP status
	RetryAfter int       `json:"retry_after_seconds"` // Suggested wait in seconds
	Timestamp  time.Time `json:"timestamp"`
}

// sendRateLimitErrorAdvanced sends a 429 with a structured body and Retry-After.
func sendRateLimitErrorAdvanced(w http.ResponseWriter, message string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Retry-After", fmt.Sprintf("%d", retryAfter))
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(RateLimitErrorResponse{
		Error:      "rate_limit_exceeded",
		Message:    message,
		Code:       http.StatusTooManyRequests,
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC(),
	})
}
