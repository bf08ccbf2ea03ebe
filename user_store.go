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

var setPasswordSQL = `UPDATE "users" AS "usr"
SET
	"hashed_password" = ?,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the persistence contract for account records. Email uniqueness is
// enforced by the storage index; a duplicate insert fails atomically and is
// surfaced as ErrDuplicateEmail rather than re-derived with a racy
// check-then-insert.
type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	UpdateProfile(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) (*User, error)

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	SoftDelete(ctx context.Context, id uuid.UUID) error

	IDStrategy() IDStrategy
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	ids IDStrategy
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

// WithIDStrategy selects how primary keys are minted. Defaults to RandomUUID.
func WithIDStrategy(s IDStrategy) UsersOption {
	return func(u *users) {
		if s != nil {
			u.ids = s
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		ids:        RandomUUID{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) IDStrategy() IDStrategy {
	return a.ids
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if err := a.prepareDefaults(record); err != nil {
		return nil, err
	}

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return created, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error) {
	return a.UpdateProfileTx(ctx, a.db, id, patch)
}

// UpdateProfileTx applies a partial update. Credential changes do not travel
// through here; SetPassword owns that column.
func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) (*User, error) {
	now := time.Now()
	record := &User{ID: id, UpdatedAt: &now}
	columns := []string{"updated_at"}

	if patch.Email != nil {
		record.Email = strings.TrimSpace(*patch.Email)
		columns = append(columns, "email")
	}
	if patch.FirstName != nil {
		record.FirstName = *patch.FirstName
		columns = append(columns, "first_name")
	}
	if patch.LastName != nil {
		record.LastName = *patch.LastName
		columns = append(columns, "last_name")
	}
	if patch.IsActive != nil {
		record.IsActive = *patch.IsActive
		columns = append(columns, "is_active")
	}
	if patch.IsSuperuser != nil {
		record.IsSuperuser = *patch.IsSuperuser
		columns = append(columns, "is_superuser")
	}
	if patch.IsVerified != nil {
		record.IsVerified = *patch.IsVerified
		columns = append(columns, "is_verified")
	}

	res, err := tx.NewUpdate().
		Model(record).
		Column(columns...).
		WherePK().
		Where("?TableAlias.deleted_at IS NULL").
		Returning("*").
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return record, nil
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.SetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, setPasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// SoftDelete marks the row deleted; bun's soft-delete turns this into an
// UPDATE on deleted_at.
func (a *users) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model(&User{ID: id}).
		WherePK().
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) prepareDefaults(record *User) error {
	if record == nil {
		return goerrors.New("user record must not be nil", goerrors.CategoryBadInput)
	}

	record.IsActive = true

	if record.ID == uuid.Nil {
		id, err := a.ids.GenerateID(record)
		if err != nil {
			return err
		}
		record.ID = id
	}

	return nil
}
