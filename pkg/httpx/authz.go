package httpx

import "net/http"

// RequireRole guards a route behind a verified principal carrying the
// given role. Attached per route at registration so the requirement is
// visible next to the handler it protects.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !p.Authenticated() {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			if !p.HasRole(role) {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			p.State = StateAuthorized
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuthenticated guards a route behind any verified principal,
// with no role requirement.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !PrincipalFromContext(r.Context()).Authenticated() {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
