package accounts_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	accounts "github.com/castlebay/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupStore(t *testing.T, opts ...accounts.UsersOption) accounts.Users {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, accounts.RunMigrations(context.Background(), db.DB, "sqlite3"))

	return accounts.NewUsersRepository(db, opts...)
}

func seedUser(t *testing.T, store accounts.Users, email string) *accounts.User {
	t.Helper()

	hash, err := accounts.HashPassword("super-secret-password")
	require.NoError(t, err)

	user, err := store.Register(context.Background(), &accounts.User{
		Email:          email,
		HashedPassword: hash,
	})
	require.NoError(t, err)
	return user
}

func TestStoreRegister(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	user := seedUser(t, store, "peperone@example.com")
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)

	found, err := store.GetByEmail(ctx, "peperone@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.NotEmpty(t, found.HashedPassword)

	// lookup trims surrounding whitespace
	found, err = store.GetByEmail(ctx, "  peperone@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	seedUser(t, store, "peperone@example.com")

	_, err := store.Register(ctx, &accounts.User{
		Email:          "peperone@example.com",
		HashedPassword: "irrelevant",
	})
	assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)
}

func TestStoreGetByEmailMiss(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetByEmail(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestStoreUpdateProfilePartial(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	user := seedUser(t, store, "peperone@example.com")

	firstName := "Pepe"
	updated, err := store.UpdateProfile(ctx, user.ID, accounts.UserPatch{FirstName: &firstName})
	require.NoError(t, err)
	assert.Equal(t, "Pepe", updated.FirstName)

	// untouched columns survive the partial update
	found, err := store.GetByEmail(ctx, "peperone@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Pepe", found.FirstName)
	assert.Equal(t, user.HashedPassword, found.HashedPassword)
	assert.True(t, found.IsActive)

	_, err = store.UpdateProfile(ctx, uuid.New(), accounts.UserPatch{FirstName: &firstName})
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestStoreUpdateProfileDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	seedUser(t, store, "peperone@example.com")
	other := seedUser(t, store, "someone-else@example.com")

	email := "peperone@example.com"
	_, err := store.UpdateProfile(ctx, other.ID, accounts.UserPatch{Email: &email})
	assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)
}

func TestStoreSetPassword(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	user := seedUser(t, store, "peperone@example.com")

	newHash, err := accounts.HashPassword("a-brand-new-password")
	require.NoError(t, err)

	require.NoError(t, store.SetPassword(ctx, user.ID, newHash))

	found, err := store.GetByEmail(ctx, "peperone@example.com")
	require.NoError(t, err)
	assert.Equal(t, newHash, found.HashedPassword)
	assert.NoError(t, accounts.ComparePasswordAndHash("a-brand-new-password", found.HashedPassword))

	err = store.SetPassword(ctx, uuid.New(), newHash)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestStoreSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	user := seedUser(t, store, "peperone@example.com")

	require.NoError(t, store.SoftDelete(ctx, user.ID))

	_, err := store.GetByEmail(ctx, "peperone@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	err = store.SoftDelete(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestStoreSequentialIDStrategy(t *testing.T) {
	strategy := accounts.NewSequentialInteger(0)
	store := setupStore(t, accounts.WithIDStrategy(strategy))

	first := seedUser(t, store, "one@example.com")
	second := seedUser(t, store, "two@example.com")

	assert.Equal(t, uint64(1), strategy.Sequence(first.ID))
	assert.Equal(t, uint64(2), strategy.Sequence(second.ID))
}
