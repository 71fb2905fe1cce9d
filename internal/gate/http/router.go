// Package http wires the authentication endpoints behind the guard
// pipeline: request logging, fast claims decoding, rate limiting, full
// token verification and CSRF checks run for every route, with role
// requirements attached per route at registration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/kv"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/service"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	kv    kv.Store

	AuthService *service.AuthService
	UserService *service.UserService

	rateLimit httpx.RateLimitConfig
}

func NewRouter(
	verifier *jwtx.Verifier,
	buildVersion string,
	st store.Store,
	tokens kv.Store,
	rateLimit httpx.RateLimitConfig,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		kv:           tokens,
		rateLimit:    rateLimit,
		logger:       logger,
	}

	// The global guard pipeline, outermost first. Fast claims run
	// before the rate limiter so the limiter can bucket by token
	// subject instead of IP; full verification and CSRF come after so
	// rejected floods never reach the expensive stages.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.FastClaimsMiddleware(),
		httpx.RateLimitMiddleware(tokens, rateLimit),
		httpx.AuthnMiddleware(verifier),
		httpx.CSRFMiddleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService: r.AuthService,
	}

	// Credential endpoints carry an extra in-process throttle against
	// brute force, independent of the shared fixed-window limit.
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.Register),
			httpx.ThrottleByIP(httpx.StrictThrottle),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.Login),
			httpx.ThrottleByIP(httpx.StrictThrottle),
		),
	)

	r.Mux.Handle("POST /auth/refresh", http.HandlerFunc(h.Refresh))

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout),
			httpx.RequireAuthenticated(),
		),
	)

	r.Mux.Handle("POST /auth/revoke",
		httpx.Chain(http.HandlerFunc(h.Revoke),
			httpx.RequireRole(domain.RoleAdmin),
		),
	)
	r.Mux.Handle("GET /auth/sessions",
		httpx.Chain(http.HandlerFunc(h.Sessions),
			httpx.RequireRole(domain.RoleAdmin),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /users/profile",
		httpx.Chain(http.HandlerFunc(h.Profile),
			httpx.RequireAuthenticated(),
		),
	)
	r.Mux.Handle("GET /users",
		httpx.Chain(http.HandlerFunc(h.List),
			httpx.RequireRole(domain.RoleAdmin),
		),
	)
	r.Mux.Handle("DELETE /users/{id}",
		httpx.Chain(http.HandlerFunc(h.Delete),
			httpx.RequireRole(domain.RoleAdmin),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.kv))
}
