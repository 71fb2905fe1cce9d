package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Signer signs access-credential claims with the shared HS256 secret.
type Signer struct {
	secret []byte
}

// NewSigner creates an HS256 signer. The secret must be non-empty; callers
// are expected to treat a missing secret as fatal at startup.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &Signer{secret: secret}, nil
}

// Sign turns claims into a signed compact JWT string. No side effects.
func (s *Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verifier validates HS256 tokens and enforces issuer, audience and expiry.
type Verifier struct {
	secret   []byte
	issuer   string
	audience []string
}

// NewVerifier creates a verifier bound to the shared secret and the expected
// issuer/audience values.
func NewVerifier(secret []byte, issuer string, audience []string) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &Verifier{secret: secret, issuer: issuer, audience: audience}, nil
}

// Verify validates the token string and returns its parsed Claims. Claim
// checks run with zero leeway after the signature check; every rejection maps
// to one of the package sentinel errors.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	// Claims validation is done by hand below so expiry stays strict.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
