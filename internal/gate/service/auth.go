package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/kv"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

var (
	ErrValidation         = errors.New("validation_failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountInactive    = errors.New("account_inactive")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// AuthService owns credential verification and the token lifecycle:
// registration, login, refresh rotation, logout and admin revocation.
type AuthService struct {
	Store      store.Store
	KV         kv.Store
	Signer     *jwtx.Signer
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Register creates a new account with the default role and returns the
// new user id. Uniqueness violations surface as ErrConflict; input
// problems as ErrValidation.
func (s *AuthService) Register(ctx context.Context, email, username, password, confirm string) (string, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if err := validateRegistration(email, username, password, confirm); err != nil {
		return "", err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return "", err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrConflict
			}
			return err
		}
		role, err := tx.Roles().GetRoleByName(ctx, domain.RoleUser)
		if err != nil {
			return err
		}
		return tx.Roles().AssignRole(ctx, user.ID, role.ID)
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", user.ID))
	return user.ID, nil
}

// Login verifies the credentials and issues a fresh token triple. The
// identifier may be an email address or a username. Unknown accounts
// and wrong passwords collapse into ErrInvalidCredentials so the
// response does not reveal which part failed; inactive accounts are
// reported distinctly but still map to the same HTTP status.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (domain.TokenTriple, error) {
	l := slogx.FromContext(ctx)

	user, err := s.lookupUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenTriple{}, ErrInvalidCredentials
		}
		return domain.TokenTriple{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.String("user_id", user.ID))
		return domain.TokenTriple{}, ErrInvalidCredentials
	}

	if !user.Active {
		l.Info("login rejected for inactive account", slog.String("user_id", user.ID))
		return domain.TokenTriple{}, ErrAccountInactive
	}

	roles, err := s.Store.Roles().ListRoleNamesForUser(ctx, user.ID)
	if err != nil {
		return domain.TokenTriple{}, err
	}

	triple, err := s.mintTokens(user, roles)
	if err != nil {
		return domain.TokenTriple{}, err
	}

	// Only one refresh session per user: retire the previous reverse
	// lookup before the new pair goes in, then overwrite the forward
	// mapping.
	if old, err := s.KV.Get(ctx, kv.RefreshKey(user.ID)); err == nil {
		if err := s.KV.Delete(ctx, kv.RefreshLookupKey(old)); err != nil {
			return domain.TokenTriple{}, err
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		return domain.TokenTriple{}, err
	}

	if err := s.storeRefresh(ctx, user.ID, triple.RefreshToken); err != nil {
		return domain.TokenTriple{}, err
	}

	l.Info("login succeeded", slog.String("user_id", user.ID))
	return triple, nil
}

// Refresh rotates the token triple for the presented refresh token.
// The token must resolve via the reverse lookup AND still match the
// forward mapping; a mismatch means the token was already rotated and
// is being replayed. Every failure, including an unreachable store,
// maps to ErrInvalidRefresh: when in doubt, the session ends.
func (s *AuthService) Refresh(ctx context.Context, presented string) (domain.TokenTriple, error) {
	l := slogx.FromContext(ctx)

	if presented == "" {
		return domain.TokenTriple{}, ErrInvalidRefresh
	}

	userID, err := s.KV.Get(ctx, kv.RefreshLookupKey(presented))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			l.Warn("refresh lookup failed", "err", err)
		}
		return domain.TokenTriple{}, ErrInvalidRefresh
	}

	current, err := s.KV.Get(ctx, kv.RefreshKey(userID))
	if err != nil || current != presented {
		if err == nil {
			l.Warn("stale refresh token replayed", slog.String("user_id", userID))
		}
		return domain.TokenTriple{}, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil || !user.Active {
		return domain.TokenTriple{}, ErrInvalidRefresh
	}

	roles, err := s.Store.Roles().ListRoleNamesForUser(ctx, user.ID)
	if err != nil {
		return domain.TokenTriple{}, ErrInvalidRefresh
	}

	triple, err := s.mintTokens(user, roles)
	if err != nil {
		return domain.TokenTriple{}, err
	}

	// Write the new pair first, then drop the old reverse lookup. A
	// crash in between leaves a dangling reverse entry that fails the
	// forward-match check above, so it cannot be replayed.
	if err := s.storeRefresh(ctx, user.ID, triple.RefreshToken); err != nil {
		return domain.TokenTriple{}, ErrInvalidRefresh
	}
	if err := s.KV.Delete(ctx, kv.RefreshLookupKey(presented)); err != nil {
		l.Warn("failed to delete rotated refresh lookup", "err", err)
	}

	l.Info("refresh rotated", slog.String("user_id", user.ID))
	return triple, nil
}

// Logout removes the caller's refresh session. When the refresh token
// is presented it is resolved and cleared as well, covering the case
// where the cookie belongs to a different account. Idempotent.
func (s *AuthService) Logout(ctx context.Context, userID, presented string) error {
	keys := []string{kv.RefreshKey(userID)}
	if presented != "" {
		if owner, err := s.KV.Get(ctx, kv.RefreshLookupKey(presented)); err == nil {
			keys = append(keys, kv.RefreshKey(owner))
		}
		keys = append(keys, kv.RefreshLookupKey(presented))
	}
	return s.KV.Delete(ctx, keys...)
}

// RevokeByIdentifier force-ends the refresh session of the account
// matching the identifier. Reports whether a live session existed.
func (s *AuthService) RevokeByIdentifier(ctx context.Context, identifier string) (bool, error) {
	user, err := s.lookupUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	token, err := s.KV.Get(ctx, kv.RefreshKey(user.ID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.KV.Delete(ctx, kv.RefreshKey(user.ID), kv.RefreshLookupKey(token)); err != nil {
		return false, err
	}

	slogx.FromContext(ctx).Info("refresh session revoked", slog.String("user_id", user.ID))
	return true, nil
}

// ListActiveSessions returns a sanitized view of every account with a
// live refresh session. Token values never leave the service.
func (s *AuthService) ListActiveSessions(ctx context.Context) ([]domain.Session, error) {
	keys, err := s.KV.ScanPrefix(ctx, kv.RefreshKeyPrefix)
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(keys))
	for _, key := range keys {
		userID := strings.TrimPrefix(key, kv.RefreshKeyPrefix)
		user, err := s.Store.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Session for a deleted account; skip it.
				continue
			}
			return nil, err
		}
		sessions = append(sessions, domain.Session{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
		})
	}
	return sessions, nil
}

// lookupUser resolves an identifier that may be an email or a username.
func (s *AuthService) lookupUser(ctx context.Context, identifier string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.User{}, store.ErrNotFound
	}
	if strings.Contains(identifier, "@") {
		return s.Store.Users().GetUserByEmail(ctx, identifier)
	}
	return s.Store.Users().GetUserByUsername(ctx, identifier)
}

// mintTokens signs a fresh access token and generates the opaque
// refresh and CSRF tokens. Nothing is persisted here.
func (s *AuthService) mintTokens(user domain.User, roles []string) (domain.TokenTriple, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Email, roles, s.AccessTTL, s.Issuer, s.Audience, time.Now())

	access, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.TokenTriple{}, err
	}

	refresh, err := cryptox.NewRefreshToken()
	if err != nil {
		return domain.TokenTriple{}, err
	}

	csrf, err := cryptox.NewCSRFToken()
	if err != nil {
		return domain.TokenTriple{}, err
	}

	return domain.TokenTriple{
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrf,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// storeRefresh writes the forward and reverse refresh mappings with the
// session TTL.
func (s *AuthService) storeRefresh(ctx context.Context, userID, refresh string) error {
	if err := s.KV.Set(ctx, kv.RefreshKey(userID), refresh, s.RefreshTTL); err != nil {
		return err
	}
	return s.KV.Set(ctx, kv.RefreshLookupKey(refresh), userID, s.RefreshTTL)
}

func validateRegistration(email, username, password, confirm string) error {
	if email == "" || username == "" || password == "" {
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(username) < minUsernameLength {
		return fmt.Errorf("%w: username too short", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password too short", ErrValidation)
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return nil
}
