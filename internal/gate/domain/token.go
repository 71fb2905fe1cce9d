package domain

import "time"

// TokenTriple is what a successful login or refresh produces: the
// short-lived access token (JWT), the opaque refresh token, and the
// CSRF double-submit token. Values are transported only via cookies;
// the HTTP response body carries just the type and lifetime.
type TokenTriple struct {
	AccessToken  string
	RefreshToken string
	CSRFToken    string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
}

// Session is a sanitized view of an active refresh session. It never
// carries token values.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
