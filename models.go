package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Profile columns added after the first schema
// revision (first_name, last_name) stay nullable so older rows remain valid.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	HashedPassword string     `bun:"hashed_password,nullzero" json:"hashed_password,omitempty"`
	FirstName      string     `bun:"first_name,nullzero" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,nullzero" json:"last_name,omitempty"`
	IsActive       bool       `bun:"is_active,notnull" json:"is_active"`
	IsSuperuser    bool       `bun:"is_superuser,notnull" json:"is_superuser"`
	IsVerified     bool       `bun:"is_verified,notnull" json:"is_verified"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// UserPatch carries a partial update. Nil means "leave untouched", so clearing
// a nullable column and skipping it are distinguishable.
type UserPatch struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
	IsVerified  *bool   `json:"is_verified,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p UserPatch) IsZero() bool {
	return p.Email == nil && p.Password == nil &&
		p.FirstName == nil && p.LastName == nil &&
		p.IsActive == nil && p.IsSuperuser == nil && p.IsVerified == nil
}

// UserRead is the API projection of a User. It never carries the credential
// hash; every endpoint that returns a user returns this shape.
type UserRead struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	IsVerified  bool      `json:"is_verified"`
}

// NewUserRead builds the outward projection of a user record.
func NewUserRead(u *User) UserRead {
	return UserRead{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
	}
}
