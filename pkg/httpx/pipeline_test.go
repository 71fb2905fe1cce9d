package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
)

const (
	testIssuer   = "gatekeeper-test"
	testAudience = "gatekeeper-clients"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

func newSignerVerifier(t *testing.T) (*jwtx.Signer, *jwtx.Verifier) {
	t.Helper()
	signer, err := jwtx.NewSigner([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifier([]byte(testSecret), testIssuer, []string{testAudience})
	require.NoError(t, err)
	return signer, verifier
}

func issueToken(t *testing.T, signer *jwtx.Signer, issuedAt time.Time, ttl time.Duration, roles []string) string {
	t.Helper()
	claims := jwtx.NewAccessClaims("user-1", "alice@example.com", roles, ttl, testIssuer, []string{testAudience}, issuedAt)
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

// echoPrincipal records the principal the pipeline resolved.
func echoPrincipal(got *httpx.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = httpx.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestFastClaimsMiddleware(t *testing.T) {
	signer, _ := newSignerVerifier(t)

	t.Run("no token passes anonymous", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.FastClaimsMiddleware())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateUnauthenticated, p.State)
	})

	t.Run("garbage token passes anonymous", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.FastClaimsMiddleware())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateUnauthenticated, p.State)
	})

	t.Run("valid token yields provisional principal", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.FastClaimsMiddleware())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, signer, time.Now(), 15*time.Minute, []string{"User"}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateProvisional, p.State)
		require.Equal(t, "user-1", p.Subject)
		require.Equal(t, "alice@example.com", p.Email)
	})

	t.Run("expired token rejected with token_expired", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.FastClaimsMiddleware())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, signer, time.Now().Add(-16*time.Minute), 15*time.Minute, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "token_expired")
		require.Equal(t, httpx.StateUnauthenticated, p.State)
	})

	t.Run("lowercase bearer scheme accepted", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.FastClaimsMiddleware())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+issueToken(t, signer, time.Now(), 15*time.Minute, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateProvisional, p.State)
		require.Equal(t, "user-1", p.Subject)
	})

	t.Run("token from access cookie", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.FastClaimsMiddleware())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{
			Name:  httpx.AccessTokenCookie,
			Value: issueToken(t, signer, time.Now(), 15*time.Minute, nil),
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateProvisional, p.State)
	})
}

func TestAuthnMiddleware(t *testing.T) {
	signer, verifier := newSignerVerifier(t)

	t.Run("no token passes anonymous", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.AuthnMiddleware(verifier))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateUnauthenticated, p.State)
	})

	t.Run("valid token yields verified principal", func(t *testing.T) {
		var p httpx.Principal
		h := httpx.Chain(echoPrincipal(&p), httpx.AuthnMiddleware(verifier))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, signer, time.Now(), 15*time.Minute, []string{"Admin"}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateVerified, p.State)
		require.True(t, p.HasRole("Admin"))
	})

	t.Run("garbage token rejected with invalid_token", func(t *testing.T) {
		h := httpx.Chain(http.NotFoundHandler(), httpx.AuthnMiddleware(verifier))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_token")
	})

	t.Run("wrong signing secret rejected", func(t *testing.T) {
		otherSigner, err := jwtx.NewSigner([]byte("another-secret-another-secret-32"))
		require.NoError(t, err)

		h := httpx.Chain(http.NotFoundHandler(), httpx.AuthnMiddleware(verifier))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, otherSigner, time.Now(), 15*time.Minute, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_token")
	})
}

func TestCSRFMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	authenticated := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := httpx.WithPrincipal(r.Context(), httpx.Principal{State: httpx.StateVerified, Subject: "user-1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	csrfRequest := func(method, cookie, header string) *http.Request {
		req := httptest.NewRequest(method, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: httpx.CSRFTokenCookie, Value: cookie})
		}
		if header != "" {
			req.Header.Set(httpx.CSRFHeader, header)
		}
		return req
	}

	t.Run("safe method skipped", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodGet, "", ""))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("anonymous caller skipped", func(t *testing.T) {
		h := httpx.Chain(ok, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodPost, "", ""))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing cookie rejected", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodPost, "", "some-token"))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "csrf_token_missing")
	})

	t.Run("missing header rejected", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodPost, "some-token", ""))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "csrf_header_missing")
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodPost, "token-a", "token-b"))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "csrf_mismatch")
	})

	t.Run("matching tokens pass", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodPost, "same-token", "same-token"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("alternate header accepted", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		req := csrfRequest(http.MethodPost, "same-token", "")
		req.Header.Set(httpx.CSRFHeaderAlt, "same-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete method checked", func(t *testing.T) {
		h := httpx.Chain(ok, authenticated, httpx.CSRFMiddleware())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, csrfRequest(http.MethodDelete, "", ""))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	var p httpx.Principal
	handler := echoPrincipal(&p)

	withPrincipal := func(in httpx.Principal) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(httpx.WithPrincipal(r.Context(), in)))
			})
		}
	}

	t.Run("anonymous rejected with 401", func(t *testing.T) {
		h := httpx.Chain(handler, httpx.RequireRole("Admin"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "unauthenticated")
	})

	t.Run("provisional principal rejected with 401", func(t *testing.T) {
		h := httpx.Chain(handler,
			withPrincipal(httpx.Principal{State: httpx.StateProvisional, Subject: "u", Roles: []string{"Admin"}}),
			httpx.RequireRole("Admin"),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("verified without role rejected with 403", func(t *testing.T) {
		h := httpx.Chain(handler,
			withPrincipal(httpx.Principal{State: httpx.StateVerified, Subject: "u", Roles: []string{"User"}}),
			httpx.RequireRole("Admin"),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "forbidden")
	})

	t.Run("verified with role authorized", func(t *testing.T) {
		h := httpx.Chain(handler,
			withPrincipal(httpx.Principal{State: httpx.StateVerified, Subject: "u", Roles: []string{"Admin"}}),
			httpx.RequireRole("Admin"),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, httpx.StateAuthorized, p.State)
	})
}
