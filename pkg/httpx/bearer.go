package httpx

import (
	"net/http"
	"strings"
)

// Cookie names shared by the middleware stages and the handlers that
// set them.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	CSRFTokenCookie    = "csrfToken"
)

const bearerScheme = "Bearer "

// BearerToken extracts the access token from the request: the
// Authorization header takes precedence, falling back to the
// accessToken cookie. Returns "" when neither is present. The scheme
// name is matched case-insensitively per RFC 7235.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > len(bearerScheme) && strings.EqualFold(authz[:len(bearerScheme)], bearerScheme) {
		return strings.TrimSpace(authz[len(bearerScheme):])
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
