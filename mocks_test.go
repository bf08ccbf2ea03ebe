package accounts_test

import (
	"context"
	"database/sql"

	accounts "github.com/castlebay/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig implements accounts.Config for tests.
type testConfig struct {
	signingKey    string
	signingMethod string
	contextKey    string
	tokenLifetime int
	tokenLookup   string
	authScheme    string
	issuer        string
	audience      []string
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey:    "test-secret",
		signingMethod: "HS256",
		contextKey:    "user",
		tokenLifetime: 3600,
		tokenLookup:   "header:Authorization",
		authScheme:    "Bearer",
		issuer:        "go-accounts",
	}
}

func (c testConfig) GetSigningKey() string    { return c.signingKey }
func (c testConfig) GetSigningMethod() string { return c.signingMethod }
func (c testConfig) GetContextKey() string    { return c.contextKey }
func (c testConfig) GetTokenLifetime() int    { return c.tokenLifetime }
func (c testConfig) GetTokenLookup() string   { return c.tokenLookup }
func (c testConfig) GetAuthScheme() string    { return c.authScheme }
func (c testConfig) GetIssuer() string        { return c.issuer }
func (c testConfig) GetAudience() []string    { return c.audience }

// TestIdentity implements accounts.Identity
type TestIdentity struct {
	id        string
	email     string
	superuser bool
}

func (i TestIdentity) ID() string      { return i.id }
func (i TestIdentity) Email() string   { return i.email }
func (i TestIdentity) Superuser() bool { return i.superuser }

// MockUsers mocks the subset of accounts.Users the manager exercises. The
// embedded interface covers the promoted repository methods; calling an
// unmocked one panics, which is what we want in tests.
type MockUsers struct {
	mock.Mock
	accounts.Users
}

func (m *MockUsers) Register(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

// RegisterTx echoes the input record when the expectation returns (nil, nil),
// mirroring how the real store hands back the inserted row.
func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, user)
	if rec := userArg(args, 0); rec != nil {
		return rec, args.Error(1)
	}
	if args.Error(1) == nil {
		return user, nil
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) UpdateProfile(ctx context.Context, id uuid.UUID, patch accounts.UserPatch) (*accounts.User, error) {
	args := m.Called(ctx, id, patch)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func userArg(args mock.Arguments, idx int) *accounts.User {
	if args.Get(idx) == nil {
		return nil
	}
	return args.Get(idx).(*accounts.User)
}

// MockRepositoryManager implements accounts.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users accounts.Users
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) Users() accounts.Users { return m.users }

// RunInTx executes the callback with a zero transaction; the mocked store
// methods never touch it.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}
