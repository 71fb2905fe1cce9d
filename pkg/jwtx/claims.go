// Package jwtx builds and validates the signed access credentials issued by
// the gatekeeper service. Tokens are HMAC-SHA256 signed with a single shared
// secret; expiry is validated with zero clock-skew tolerance.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short-lived access credentials, sliding 7-day refresh.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-credential claims. Keep changes additive so older
// tokens keep parsing during a rollout.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated account.
	Email string `json:"email,omitempty"`

	// Roles granted to the account at issue time.
	Roles []string `json:"roles,omitempty"`
}

// NewAccessClaims builds minimally-correct claims bound at call time.
func NewAccessClaims(
	subject, email string,
	roles []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: email,
		Roles: roles,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf). No leeway: any now > exp is expired.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.Expired(now) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// Expired reports whether the exp claim is strictly in the past at now.
// Second granularity, no grace window.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.Unix() > c.ExpiresAt.Unix()
}
