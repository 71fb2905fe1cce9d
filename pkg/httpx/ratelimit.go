package httpx

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Counter increments a rate-limit bucket and returns the new count.
// The TTL is applied only when the increment creates the bucket.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RateLimitConfig defines the fixed-window rate limiting parameters.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per window.
	Requests int
	// Window is the fixed window duration.
	Window time.Duration
	// Key builds the counter key from the caller identity and the
	// window index.
	Key func(identity string, windowIndex int64) string
	// ExemptPrefixes lists path prefixes the limiter never counts,
	// e.g. health probes.
	ExemptPrefixes []string
	// Now supplies the clock for window indexing. Defaults to
	// time.Now; tests pin it to keep a run inside one window.
	Now func() time.Time
}

// RateLimitMiddleware enforces a global fixed-window rate limit backed
// by a shared counter so limits hold across instances. Identity is the
// token subject when a principal is present, the client IP otherwise.
// A failing counter backend fails open: availability wins over limit
// precision.
func RateLimitMiddleware(counter Counter, cfg RateLimitConfig) Middleware {
	windowSec := int64(cfg.Window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.ExemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identity := limitIdentity(r)
			windowIndex := now().Unix() / windowSec
			key := cfg.Key(identity, windowIndex)

			count, err := counter.Incr(r.Context(), key, time.Duration(windowSec)*time.Second)
			if err != nil {
				slogx.FromContext(r.Context()).Warn("rate limit store unavailable, allowing request",
					"err", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(cfg.Requests) {
				w.Header().Set("Retry-After", strconv.FormatInt(windowSec, 10))
				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"identity", identity,
					"endpoint", r.URL.Path,
					"count", count,
				)
				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitIdentity picks the bucket identity for a request: token subject,
// then client IP, then "unknown".
func limitIdentity(r *http.Request) string {
	if p := PrincipalFromContext(r.Context()); p.State >= StateProvisional && p.Subject != "" {
		return p.Subject
	}
	if ip := IPKeyExtractor(r); ip != "" {
		return ip
	}
	return "unknown"
}

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
