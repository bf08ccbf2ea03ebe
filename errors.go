package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried on structured errors so API clients can branch without
// string-matching messages.
const (
	TextCodeDuplicateEmail     = "REGISTER_USER_ALREADY_EXISTS"
	TextCodeInvalidCredentials = "LOGIN_BAD_CREDENTIALS"
	TextCodeWeakPassword       = "REGISTER_INVALID_PASSWORD"
	TextCodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenSignature     = "AUTH_TOKEN_BAD_SIGNATURE"
	TextCodeTokenMalformed     = "AUTH_TOKEN_MALFORMED"
	TextCodeUserInactive       = "AUTH_USER_INACTIVE"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
)

// ErrDuplicateEmail is returned when the storage unique constraint rejects a
// second account with the same email. The login contract reports it as a 400.
var ErrDuplicateEmail = goerrors.New("a user with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials covers both unknown email and wrong password; callers
// must not be able to tell the two apart.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrWeakPassword is returned when a registration password fails policy.
var ErrWeakPassword = goerrors.New("password does not meet the minimum requirements", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is returned for tokens whose signature is valid but whose
// expiry has passed.
var ErrTokenExpired = goerrors.New("authentication token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenSignatureInvalid is returned for tokens signed with a different
// secret. Signature failures are never reported as expiry.
var ErrTokenSignatureInvalid = goerrors.New("authentication token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that do not parse as JWTs.
var ErrTokenMalformed = goerrors.New("authentication token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserInactive rejects authenticated requests from deactivated accounts.
var ErrUserInactive = goerrors.New("user account is inactive", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is the lookup miss for user records.
var ErrIdentityNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// IsTokenError reports whether err is one of the token verification failures.
// The HTTP boundary collapses all of them into a 401; the distinction exists
// for logging.
func IsTokenError(err error) bool {
	return goerrors.Is(err, ErrTokenExpired) ||
		goerrors.Is(err, ErrTokenSignatureInvalid) ||
		goerrors.Is(err, ErrTokenMalformed)
}

// isUniqueViolation recognizes the unique-constraint rejection of the two
// supported drivers so the store can translate it into ErrDuplicateEmail.
// Postgres reports SQLSTATE 23505; the sqlite shim only exposes the message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	type sqlStater interface {
		Field(byte) string
	}
	var pgErr sqlStater
	if goerrors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
