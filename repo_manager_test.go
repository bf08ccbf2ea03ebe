package accounts_test

import (
	"context"
	"database/sql"
	"testing"

	accounts "github.com/castlebay/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupManager(t *testing.T) accounts.RepositoryManager {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:repo_manager_test?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, accounts.RunMigrations(context.Background(), db.DB, "sqlite3"))

	return accounts.NewRepositoryManager(db)
}

func TestRepositoryManagerValidate(t *testing.T) {
	repo := setupManager(t)
	require.NoError(t, repo.Validate())
	require.NotPanics(t, repo.MustValidate)
	require.NotNil(t, repo.Users())
}

func TestRepositoryManagerRunInTx(t *testing.T) {
	ctx := context.Background()
	repo := setupManager(t)

	hash, err := accounts.HashPassword("super-secret-password")
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Users().RegisterTx(ctx, tx, &accounts.User{
			Email:          "peperone@example.com",
			HashedPassword: hash,
		})
		return err
	})
	require.NoError(t, err)

	found, err := repo.Users().GetByEmail(ctx, "peperone@example.com")
	require.NoError(t, err)
	assert.Equal(t, "peperone@example.com", found.Email)
}

func TestRepositoryManagerRunInTxCancelled(t *testing.T) {
	repo := setupManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		t.Fatal("callback must not run when the context is already cancelled")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
