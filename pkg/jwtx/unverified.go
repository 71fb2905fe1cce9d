package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// DecodeUnverified parses the claim payload WITHOUT checking the signature.
// The result is only suitable for fast, approximate identity and must never
// feed a security decision.
func DecodeUnverified(tokenStr string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
