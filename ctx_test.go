package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/castlebay/go-accounts"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundtrip(t *testing.T) {
	user := &accounts.User{ID: uuid.New(), Email: "peperone@example.com"}

	ctx := accounts.WithContext(context.Background(), user)
	found, ok := accounts.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user.ID, found.ID)

	_, ok = accounts.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContextRoundtrip(t *testing.T) {
	claims := &accounts.JWTClaims{UID: uuid.NewString(), UserEmail: "peperone@example.com"}

	ctx := accounts.WithClaimsContext(context.Background(), claims)
	found, ok := accounts.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, claims.UserID(), found.UserID())

	_, ok = accounts.GetClaims(context.Background())
	assert.False(t, ok)
}

func TestGetRouterClaims(t *testing.T) {
	claims := &accounts.JWTClaims{UID: uuid.NewString()}

	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = claims

	found, ok := accounts.GetRouterClaims(ctx, "")
	require.True(t, ok)
	assert.Equal(t, claims.UserID(), found.UserID())

	empty := router.NewMockContext()
	_, ok = accounts.GetRouterClaims(empty, "user")
	assert.False(t, ok)
}
