package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/kv"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/service"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
)

func TestUserService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := &service.UserService{Store: f.store, KV: f.kv}

	aliceID := f.register(t, "alice@example.com", "alice", "correct-horse")
	f.register(t, "bob@example.com", "bobby", "correct-horse")

	t.Run("profile returns user and roles", func(t *testing.T) {
		user, roles, err := users.Profile(ctx, aliceID)
		require.NoError(t, err)
		require.Equal(t, "alice", user.Username)
		require.Equal(t, []string{domain.RoleUser}, roles)
	})

	t.Run("profile for missing user", func(t *testing.T) {
		_, _, err := users.Profile(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		all, err := users.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("delete ends refresh session", func(t *testing.T) {
		triple, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
		require.NoError(t, err)

		require.NoError(t, users.Delete(ctx, aliceID))

		_, _, err = users.Profile(ctx, aliceID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = f.kv.Get(ctx, kv.RefreshKey(aliceID))
		require.ErrorIs(t, err, kv.ErrNotFound)
		_, err = f.kv.Get(ctx, kv.RefreshLookupKey(triple.RefreshToken))
		require.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("delete missing user", func(t *testing.T) {
		require.ErrorIs(t, users.Delete(ctx, "nope"), store.ErrNotFound)
	})
}
