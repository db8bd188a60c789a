package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/usecase"
)

// KeyFunc derives the rate limit identifier from a request. Keys should
// include the tenant so one tenant's traffic cannot exhaust another's quota.
type KeyFunc func(r *http.Request) string

// RateLimit is a middleware factory that applies a fixed-window policy per
// derived key. Indeterminate decisions pass through (fail-open); only an
// explicit denial produces a 429.
func RateLimit(limiter *usecase.RateLimiter, policy domain.RatePolicy, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Allow(r.Context(), keyFn(r), policy)
			SetRateHeaders(w, decision)

			if !decision.Permitted() {
				w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter().Seconds())+1))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetRateHeaders exposes the decision on the standard X-RateLimit headers.
func SetRateHeaders(w http.ResponseWriter, d domain.RateDecision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// ClientIP extracts the originating client address, preferring the first
// X-Forwarded-For hop set by the ingress proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx != -1 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PublicKey keys the general public surface by tenant and client IP.
func PublicKey(r *http.Request) string {
	key := "rl:public:"
	if tenant, ok := TenantFromContext(r.Context()); ok {
		key += tenant.ID.String() + ":"
	}
	return key + ClientIP(r)
}
