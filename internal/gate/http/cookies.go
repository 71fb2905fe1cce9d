package http

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

// setAuthCookies writes the token triple as cookies. Access and refresh
// tokens are HttpOnly; the CSRF token must be readable by scripts so
// the client can echo it back in a header.
func setAuthCookies(w http.ResponseWriter, r *http.Request, triple domain.TokenTriple, refreshTTL time.Duration) {
	secure := secureCookies(r)

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.AccessTokenCookie,
		Value:    triple.AccessToken,
		Path:     "/",
		MaxAge:   int(triple.ExpiresIn / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.RefreshTokenCookie,
		Value:    triple.RefreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.CSRFTokenCookie,
		Value:    triple.CSRFToken,
		Path:     "/",
		MaxAge:   int(triple.ExpiresIn / time.Second),
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires all three auth cookies.
func clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	secure := secureCookies(r)
	for _, name := range []string{httpx.AccessTokenCookie, httpx.RefreshTokenCookie, httpx.CSRFTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name != httpx.CSRFTokenCookie,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// secureCookies reports whether cookies should carry the Secure flag.
// Loopback requests are exempt so local development over plain HTTP
// still works.
func secureCookies(r *http.Request) bool {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}
