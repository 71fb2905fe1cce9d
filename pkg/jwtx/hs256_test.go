package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret-at-least-32-bytes")

func newTestPair(t *testing.T) (*jwtx.Signer, *jwtx.Verifier) {
	t.Helper()

	signer, err := jwtx.NewSigner(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifier(testSecret, "gatekeeper", []string{"gatekeeper-client"})
	require.NoError(t, err)

	return signer, verifier
}

func issueAt(t *testing.T, signer *jwtx.Signer, now time.Time, ttl time.Duration) string {
	t.Helper()

	claims := jwtx.NewAccessClaims(
		"user-1", "a@x.com",
		[]string{"User", "Admin"},
		ttl,
		"gatekeeper",
		[]string{"gatekeeper-client"},
		now,
	)
	tok, err := signer.Sign(claims)
	require.NoError(t, err)
	return tok
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, verifier := newTestPair(t)
	tok := issueAt(t, signer, time.Now().UTC(), time.Minute)

	claims, err := verifier.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, []string{"User", "Admin"}, claims.Roles)
	require.True(t, claims.HasRole("Admin"))
	require.False(t, claims.HasRole("Operator"))
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	signer, verifier := newTestPair(t)
	tok := issueAt(t, signer, time.Now().UTC(), time.Minute)

	// Flip one byte of the signature segment.
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err := verifier.Verify(tampered)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, _ := newTestPair(t)
	tok := issueAt(t, signer, time.Now().UTC(), time.Minute)

	other, err := jwtx.NewVerifier([]byte("a-completely-different-secret-key"), "gatekeeper", []string{"gatekeeper-client"})
	require.NoError(t, err)

	_, err = other.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyRejectsWrongIssuerAndAudience(t *testing.T) {
	signer, _ := newTestPair(t)

	t.Run("issuer", func(t *testing.T) {
		verifier, err := jwtx.NewVerifier(testSecret, "someone-else", []string{"gatekeeper-client"})
		require.NoError(t, err)

		tok := issueAt(t, signer, time.Now().UTC(), time.Minute)
		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("audience", func(t *testing.T) {
		verifier, err := jwtx.NewVerifier(testSecret, "gatekeeper", []string{"other-client"})
		require.NoError(t, err)

		tok := issueAt(t, signer, time.Now().UTC(), time.Minute)
		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})
}

func TestVerifyExpiryBoundary(t *testing.T) {
	signer, verifier := newTestPair(t)

	t.Run("accepted just before expiry", func(t *testing.T) {
		// Issued 14m59s ago with a 15m TTL.
		tok := issueAt(t, signer, time.Now().UTC().Add(-(14*time.Minute + 59*time.Second)), 15*time.Minute)
		_, err := verifier.Verify(tok)
		require.NoError(t, err)
	})

	t.Run("rejected just after expiry", func(t *testing.T) {
		// Issued 15m01s ago with a 15m TTL.
		tok := issueAt(t, signer, time.Now().UTC().Add(-(15*time.Minute + time.Second)), 15*time.Minute)
		_, err := verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}

func TestVerifyRejectsMalformed(t *testing.T) {
	_, verifier := newTestPair(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "token %q", tok)
	}
}

func TestVerifyRejectsAlgorithmConfusion(t *testing.T) {
	_, verifier := newTestPair(t)

	// A token signed with "none" must never validate.
	claims := jwtx.NewAccessClaims(
		"user-1", "a@x.com", nil, time.Minute,
		"gatekeeper", []string{"gatekeeper-client"}, time.Now().UTC(),
	)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	require.Error(t, err)
}

func TestDecodeUnverified(t *testing.T) {
	signer, _ := newTestPair(t)

	t.Run("parses payload without key", func(t *testing.T) {
		tok := issueAt(t, signer, time.Now().UTC(), time.Minute)
		claims, err := jwtx.DecodeUnverified(tok)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.Subject)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := jwtx.DecodeUnverified("x.y.z")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("expired strictly", func(t *testing.T) {
		tok := issueAt(t, signer, time.Now().UTC().Add(-2*time.Minute), time.Minute)
		claims, err := jwtx.DecodeUnverified(tok)
		require.NoError(t, err)
		require.True(t, claims.Expired(time.Now().UTC()))
	})
}
