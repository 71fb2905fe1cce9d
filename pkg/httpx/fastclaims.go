package httpx

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// FastClaimsMiddleware decodes the token payload without verifying the
// signature and attaches a provisional principal. Its only rejection is
// a hard-expired token: that short-circuits the request before the more
// expensive full verification runs. Any other decode failure leaves the
// request anonymous and lets the next stage decide.
func FastClaimsMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtx.DecodeUnverified(raw)
			if err != nil {
				// Unparseable payloads stay anonymous; full
				// verification will reject them if the route
				// requires authentication.
				next.ServeHTTP(w, r)
				return
			}

			if claims.Expired(time.Now()) {
				slogx.FromContext(r.Context()).Warn("expired token rejected before verification",
					"sub", claims.Subject,
				)
				WriteError(w, http.StatusUnauthorized, "token_expired", "access token has expired")
				return
			}

			p := Principal{
				State:   StateProvisional,
				Subject: claims.Subject,
				Email:   claims.Email,
				Roles:   claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
