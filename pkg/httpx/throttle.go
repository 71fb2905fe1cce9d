package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"golang.org/x/time/rate"
)

// ThrottleConfig defines a per-caller token-bucket throttle. Unlike the
// global fixed-window limiter this lives in process memory and guards
// individual hot endpoints such as login against brute force.
type ThrottleConfig struct {
	// Requests is the number of requests allowed per Window.
	Requests int
	// Window is the averaging window for the bucket refill rate.
	Window time.Duration
	// Burst allows short bursts above the steady rate.
	Burst int
}

// StrictThrottle is the profile for credential endpoints.
var StrictThrottle = ThrottleConfig{
	Requests: 5,
	Window:   time.Minute,
	Burst:    5,
}

// KeyExtractor is a function that extracts a unique key from the
// request for throttling purposes, typically the client IP.
type KeyExtractor func(*http.Request) string

// throttler manages per-key token buckets.
type throttler struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (t *throttler) getLimiter(key string) *rate.Limiter {
	if limiter, ok := t.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(t.rate, t.burst)
	actual, _ := t.limiters.LoadOrStore(key, limiter)

	t.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle limiters so ephemeral keys do not accumulate
// forever. A limiter with a full bucket has not been used recently.
func (t *throttler) maybeCleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastCleanup) < 5*time.Minute {
		return
	}
	t.lastCleanup = time.Now()

	t.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(t.burst) {
			t.limiters.Delete(key)
		}
		return true
	})
}

// ThrottleMiddleware creates a per-key token-bucket throttle with the
// given configuration. Requests with no extractable key pass through.
func ThrottleMiddleware(cfg ThrottleConfig, key KeyExtractor) Middleware {
	perSecond := float64(cfg.Requests) / cfg.Window.Seconds()

	t := &throttler{
		rate:        rate.Limit(perSecond),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			k := key(r)
			if k == "" {
				log.Warn("throttle: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := t.getLimiter(k)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				log.Warn("throttle exceeded",
					"key", k,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)
				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many attempts. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ThrottleByIP throttles by client IP only.
func ThrottleByIP(cfg ThrottleConfig) Middleware {
	return ThrottleMiddleware(cfg, KeyExtractor(IPKeyExtractor))
}
