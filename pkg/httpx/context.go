package httpx

import "context"

// AuthState tracks how far a request has progressed through the
// authentication stages. Transitions only ever move forward:
// Unauthenticated -> Provisional -> Verified -> Authorized. A request
// rejected at any stage never reaches a handler, so handlers observing
// a Principal can trust its state.
type AuthState int

const (
	// StateUnauthenticated is the zero state: no usable token.
	StateUnauthenticated AuthState = iota

	// StateProvisional means claims were decoded from the token payload
	// without signature verification. Useful for logging and rate-limit
	// identity, never for security decisions.
	StateProvisional

	// StateVerified means the token signature and claims were fully
	// validated.
	StateVerified

	// StateAuthorized means a role requirement was checked and passed
	// on top of a verified token.
	StateAuthorized
)

func (s AuthState) String() string {
	switch s {
	case StateProvisional:
		return "provisional"
	case StateVerified:
		return "verified"
	case StateAuthorized:
		return "authorized"
	default:
		return "unauthenticated"
	}
}

// Principal is the caller identity resolved by the middleware stages.
// The zero value is an anonymous caller.
type Principal struct {
	State   AuthState
	Subject string
	Email   string
	Roles   []string
}

// Authenticated reports whether the principal passed full token
// verification. Provisional principals do not count.
func (p Principal) Authenticated() bool {
	return p.State >= StateVerified
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, or an
// anonymous principal when none is present.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{}
}
