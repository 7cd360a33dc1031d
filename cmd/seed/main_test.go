package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	"github.com/spmukhedkar/user-role-system-server/internal/logger"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
	"github.com/spmukhedkar/user-role-system-server/internal/service"
)

func TestParseOptions(t *testing.T) {
	t.Setenv("SEED_ADMIN_USERNAME", "root")
	t.Setenv("SEED_ADMIN_PASSWORD", "from-env")

	opts, err := parseOptions([]string{"--admin-password", "from-flag"})
	require.NoError(t, err)

	assert.Equal(t, "root", opts.AdminUserName)
	assert.Equal(t, "from-flag", opts.AdminPassword)
	assert.False(t, opts.Purge)

	opts, err = parseOptions([]string{"--purge"})
	require.NoError(t, err)
	assert.True(t, opts.Purge)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewPasswordHasher(4)

	newStore := func() (*repository.MemoryStore, service.RoleService) {
		store := repository.NewMemoryStore()
		return store, service.NewRoleService(store.Roles(), nil, 0)
	}

	t.Run("role only", func(t *testing.T) {
		store, roles := newStore()
		require.NoError(t, seed(ctx, logger.Nop(), "admin", seedOptions{}, roles, store.Users(), hasher))
		require.NoError(t, seed(ctx, logger.Nop(), "admin", seedOptions{}, roles, store.Users(), hasher))

		all, err := roles.ListRoles(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("creates admin user", func(t *testing.T) {
		store, roles := newStore()
		opts := seedOptions{AdminUserName: "root", AdminPassword: "s3cret"}
		require.NoError(t, seed(ctx, logger.Nop(), "admin", opts, roles, store.Users(), hasher))

		user, err := store.Users().FindByUserName(ctx, "root")
		require.NoError(t, err)
		assert.True(t, user.HasRole("admin"))
		assert.False(t, user.Authorize)
		assert.True(t, hasher.Verify("s3cret", user.PasswordHash))
	})

	t.Run("promotes existing user", func(t *testing.T) {
		store, roles := newStore()
		require.NoError(t, store.Users().Create(ctx, &model.User{UserName: "bob", PasswordHash: "x"}))

		opts := seedOptions{AdminUserName: "bob"}
		require.NoError(t, seed(ctx, logger.Nop(), "admin", opts, roles, store.Users(), hasher))

		user, err := store.Users().FindByUserName(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, user.HasRole("admin"))
		assert.Equal(t, "x", user.PasswordHash)
	})

	t.Run("new user needs a password", func(t *testing.T) {
		store, roles := newStore()
		err := seed(ctx, logger.Nop(), "admin", seedOptions{AdminUserName: "root"}, roles, store.Users(), hasher)
		assert.Error(t, err)

		_, err = store.Users().FindByUserName(ctx, "root")
		assert.Error(t, err)
	})
}
