package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Opaque token sizes (in bytes before encoding).
const (
	// RefreshTokenSize gives 512 bits of entropy for refresh credentials.
	RefreshTokenSize = 64
	// CSRFTokenSize gives 256 bits of entropy for anti-forgery tokens.
	CSRFTokenSize = 32
)

// GenerateToken draws size random bytes from the platform CSPRNG and returns
// them base64url-encoded (no padding). Uniqueness is not checked anywhere;
// at these sizes collision probability is negligible.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewRefreshToken returns a fresh opaque refresh credential.
func NewRefreshToken() (string, error) {
	return GenerateToken(RefreshTokenSize)
}

// NewCSRFToken returns a fresh opaque anti-forgery token.
func NewCSRFToken() (string, error) {
	return GenerateToken(CSRFTokenSize)
}
