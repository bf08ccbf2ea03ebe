package accounts

import (
	"encoding/binary"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// IDStrategy decides how primary keys are minted and checked. The store calls
// GenerateID once per insert; identifiers are immutable afterwards.
type IDStrategy interface {
	GenerateID(record *User) (uuid.UUID, error)
	ValidateID(raw string) (uuid.UUID, error)
}

// RandomUUID issues v4 identifiers. This is the default strategy.
type RandomUUID struct{}

func (RandomUUID) GenerateID(_ *User) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (RandomUUID) ValidateID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user identifier")
	}
	return id, nil
}

// SequentialInteger mirrors the integer auto-increment identifiers of the
// first schema revision. The counter occupies the trailing eight bytes of the
// UUID column so both strategies share one storage type.
type SequentialInteger struct {
	next atomic.Uint64
}

// NewSequentialInteger starts counting after seed.
func NewSequentialInteger(seed uint64) *SequentialInteger {
	s := &SequentialInteger{}
	s.next.Store(seed)
	return s
}

func (s *SequentialInteger) GenerateID(_ *User) (uuid.UUID, error) {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], s.next.Add(1))
	return id, nil
}

func (s *SequentialInteger) ValidateID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user identifier")
	}

	if binary.BigEndian.Uint64(id[:8]) != 0 || binary.BigEndian.Uint64(id[8:]) == 0 {
		return uuid.Nil, goerrors.New("identifier is outside the sequential range", goerrors.CategoryBadInput)
	}

	return id, nil
}

// Sequence returns the integer encoded in a sequential identifier.
func (s *SequentialInteger) Sequence(id uuid.UUID) uint64 {
	return binary.BigEndian.Uint64(id[8:])
}

// DeterministicEmail derives the identifier from the account email, so
// re-registration attempts for the same address collide on the primary key as
// well as the unique index.
type DeterministicEmail struct{}

func (DeterministicEmail) GenerateID(record *User) (uuid.UUID, error) {
	if record == nil || record.Email == "" {
		return uuid.Nil, ErrNoEmptyString
	}
	return hashid.NewUUID(record.Email)
}

func (DeterministicEmail) ValidateID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user identifier")
	}
	return id, nil
}
