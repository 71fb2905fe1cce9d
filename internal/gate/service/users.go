package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/kv"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// UserService serves the directory views: the caller's own profile and
// the admin listing/removal operations.
type UserService struct {
	Store store.Store
	KV    kv.Store
}

// Profile returns the account behind a verified principal together
// with its role names.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, []string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, nil, err
	}
	roles, err := s.Store.Roles().ListRoleNamesForUser(ctx, userID)
	if err != nil {
		return domain.User{}, nil, err
	}
	return user, roles, nil
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// Delete removes an account and ends its refresh session so the
// deleted user cannot keep minting access tokens.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return err
	}

	if token, err := s.KV.Get(ctx, kv.RefreshKey(userID)); err == nil {
		if err := s.KV.Delete(ctx, kv.RefreshKey(userID), kv.RefreshLookupKey(token)); err != nil {
			slogx.FromContext(ctx).Warn("failed to clear refresh session for deleted user",
				slog.String("user_id", userID), "err", err)
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		slogx.FromContext(ctx).Warn("refresh session lookup failed during delete",
			slog.String("user_id", userID), "err", err)
	}

	return s.Store.Users().DeleteUser(ctx, userID)
}
