package main

import (
	"context"
	"testing"

	"github.com/ErlanBelekov/account-service/internal/domain"
	storeredis "github.com/ErlanBelekov/account-service/internal/infrastructure/redis"
	"github.com/ErlanBelekov/account-service/internal/password"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newRepo(t *testing.T) *storeredis.UserRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storeredis.NewUserRepository(rdb, "seed")
}

func TestSeedAdmin_CreatesApprovedAdminOnce(t *testing.T) {
	ctx := context.Background()
	users := newRepo(t)
	hasher := password.NewHasher(bcrypt.MinCost)

	admin, created, err := seedAdmin(ctx, users, hasher, "Admin", " Root@Example.com ", "Adm1n!pass")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "root@example.com", admin.Email)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Equal(t, domain.StatusApproved, admin.Status)
	assert.True(t, hasher.Compare(admin.PasswordHash, "Adm1n!pass"))

	again, created, err := seedAdmin(ctx, users, hasher, "Admin", "root@example.com", "Adm1n!pass")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
}

func TestSeedAdmin_RefusesToPromoteRegularUser(t *testing.T) {
	ctx := context.Background()
	users := newRepo(t)
	_, err := users.Create(ctx, &domain.User{
		Name: "U", Email: "u@example.com", PasswordHash: "x",
		Status: domain.StatusPending, Role: domain.RoleUser,
	})
	require.NoError(t, err)

	_, _, err = seedAdmin(ctx, users, password.NewHasher(bcrypt.MinCost), "Admin", "u@example.com", "Adm1n!pass")
	assert.Error(t, err)

	u, err := users.FindByEmail(ctx, "u@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, domain.StatusPending, u.Status)
}

func TestSeedAdmin_ApprovesPendingAdmin(t *testing.T) {
	ctx := context.Background()
	users := newRepo(t)
	existing, err := users.Create(ctx, &domain.User{
		Name: "Admin", Email: "root@example.com", PasswordHash: "x",
		Status: domain.StatusPending, Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	admin, created, err := seedAdmin(ctx, users, password.NewHasher(bcrypt.MinCost), "Admin", "root@example.com", "Adm1n!pass")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, admin.ID)
	assert.Equal(t, domain.StatusApproved, admin.Status)
}

func TestSeedAdmin_WeakPassword(t *testing.T) {
	_, _, err := seedAdmin(context.Background(), newRepo(t), password.NewHasher(bcrypt.MinCost), "Admin", "a@example.com", "admin")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
}
