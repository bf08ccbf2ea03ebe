package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegistrationListener is notified after a user record is committed. Listener
// failures never fail the registration; they run on their own goroutine and
// panics are recovered and logged.
type RegistrationListener func(ctx context.Context, user *User)

// RegisterInput carries the attributes a caller may set when creating an
// account. Authorization flags are not included; new accounts always start
// active, non-superuser, unverified.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserManager owns the account lifecycle: registration, credential
// verification, profile updates, and token-to-user resolution.
type UserManager struct {
	repo           RepositoryManager
	tokens         TokenService
	logger         Logger
	listeners      []RegistrationListener
	minPasswordLen int
	dummyHash      string
}

type UserManagerOption func(*UserManager)

func WithLogger(logger Logger) UserManagerOption {
	return func(m *UserManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithRegistrationListener(listener RegistrationListener) UserManagerOption {
	return func(m *UserManager) {
		if listener != nil {
			m.listeners = append(m.listeners, listener)
		}
	}
}

// WithPasswordPolicy overrides the minimum accepted password length.
func WithPasswordPolicy(minLength int) UserManagerOption {
	return func(m *UserManager) {
		if minLength > 0 {
			m.minPasswordLen = minLength
		}
	}
}

func NewUserManager(repo RepositoryManager, tokens TokenService, opts ...UserManagerOption) *UserManager {
	manager := &UserManager{
		repo:           repo,
		tokens:         tokens,
		logger:         defLogger{},
		minPasswordLen: 8,
		dummyHash:      RandomPasswordHash(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}

	return manager
}

func (m *UserManager) TokenService() TokenService {
	return m.tokens
}

// Register creates a new account. The unique email index is the arbiter for
// concurrent registrations with the same address: exactly one insert commits,
// the rest surface ErrDuplicateEmail.
func (m *UserManager) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := m.checkPasswordPolicy(input.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:          strings.TrimSpace(input.Email),
		HashedPassword: hash,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := m.repo.Users().RegisterTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	m.notifyRegistered(user)

	return user, nil
}

// Authenticate verifies an email/password pair. Unknown email and wrong
// password both return ErrInvalidCredentials, and the unknown-email path
// still burns a bcrypt comparison so the two are indistinguishable by
// timing. Inactive accounts fail the same way.
func (m *UserManager) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := m.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			_ = ComparePasswordAndHash(password, m.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user.HashedPassword == "" {
		_ = ComparePasswordAndHash(password, m.dummyHash)
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.HashedPassword); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// CurrentUser resolves a bearer token to its live account record. Any token
// defect, a missing record, or an inactive account yields an auth error.
func (m *UserManager) CurrentUser(ctx context.Context, rawToken string) (*User, error) {
	claims, err := m.tokens.Validate(rawToken)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "token subject is not a valid user id").
			WithCode(goerrors.CodeUnauthorized)
	}

	user, err := m.GetUser(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrUserInactive
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}

func (m *UserManager) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := m.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser applies a partial update. A password in the patch is validated
// against the policy and re-hashed; every other field goes straight to the
// store. An empty patch is a no-op read.
func (m *UserManager) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error) {
	if patch.Password != nil {
		if err := m.checkPasswordPolicy(*patch.Password); err != nil {
			return nil, err
		}

		hash, err := HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}

		if err := m.repo.Users().SetPassword(ctx, id, hash); err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return nil, ErrIdentityNotFound
			}
			return nil, err
		}
	}

	profile := patch
	profile.Password = nil
	if profile.IsZero() {
		return m.GetUser(ctx, id)
	}

	user, err := m.repo.Users().UpdateProfile(ctx, id, profile)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return user, nil
}

func (m *UserManager) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := m.repo.Users().SoftDelete(ctx, id); err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return err
	}
	return nil
}

func (m *UserManager) checkPasswordPolicy(password string) error {
	if len(password) < m.minPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

func (m *UserManager) notifyRegistered(user *User) {
	for _, listener := range m.listeners {
		go func(notify RegistrationListener) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("registration listener panicked: %v", r)
				}
			}()
			notify(context.Background(), user)
		}(listener)
	}
}

// VerifyIdentity implements IdentityProvider for the token issuing flow.
func (m *UserManager) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := m.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	return identityFromUser(user), nil
}

// FindIdentityByIdentifier accepts either a user id or an email address, so
// both login payloads and session subjects resolve through the same path.
func (m *UserManager) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var user *User
	var err error

	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		user, err = m.repo.Users().GetByID(ctx, id.String())
	} else {
		user, err = m.repo.Users().GetByEmail(ctx, identifier)
	}

	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return identityFromUser(user), nil
}

type authIdentity struct {
	id        string
	email     string
	superuser bool
}

func (a authIdentity) ID() string      { return a.id }
func (a authIdentity) Email() string   { return a.email }
func (a authIdentity) Superuser() bool { return a.superuser }

var _ Identity = authIdentity{}

var _ IdentityProvider = (*UserManager)(nil)

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:        user.ID.String(),
		email:     user.Email,
		superuser: user.IsSuperuser,
	}
}
