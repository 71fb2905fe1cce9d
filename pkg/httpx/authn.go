package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// AuthnMiddleware fully verifies the bearer token and replaces any
// provisional principal with a verified one. Requests without a token
// pass through anonymous; routes that need authentication enforce it
// via RequireRole or by checking the principal themselves.
func AuthnMiddleware(v *jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				slogx.FromContext(r.Context()).Warn("token verification failed", "err", err)
				WriteError(w, http.StatusUnauthorized, "invalid_token", "access token could not be verified")
				return
			}

			p := Principal{
				State:   StateVerified,
				Subject: claims.Subject,
				Email:   claims.Email,
				Roles:   claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
