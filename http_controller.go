package accounts

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AccountControllerRoutes holds the mount points for the JSON API.
type AccountControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	UsersMe  string
	Users    string
}

// AccountController exposes the account API over HTTP. It does input shape
// validation only; business rules live in the UserManager.
type AccountController struct {
	Logger     Logger
	Manager    *UserManager
	Auther     Authenticator
	Routes     *AccountControllerRoutes
	ContextKey string
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithUserManager(manager *UserManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Manager = manager
		return c
	}
}

func WithAuther(auther Authenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

// WithSessionContextKey sets the locals key the token middleware stores
// claims under.
func WithSessionContextKey(key string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:     defLogger{},
		ContextKey: "user",
		Routes: &AccountControllerRoutes{
			Login:    "/auth/jwt/login",
			Logout:   "/auth/jwt/logout",
			Register: "/auth/register",
			UsersMe:  "/users/me",
			Users:    "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing UserManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in account controller...")
	}

	return c
}

// RegisterAccountRoutes mounts the account API. Routes under protected
// require a verified bearer token.
func RegisterAccountRoutes[T any](app router.Router[T], protected router.MiddlewareFunc, opts ...AccountControllerOption) *AccountController {
	controller := NewAccountController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.jwt.login.post")
	app.Post(controller.Routes.Logout, controller.LogoutPost, protected).
		SetName("auth.jwt.logout.post")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register.post")

	app.Get(controller.Routes.UsersMe, controller.UsersMe, protected).
		SetName("users.me.get")
	app.Patch(controller.Routes.UsersMe, controller.UsersMeUpdate, protected).
		SetName("users.me.patch")

	app.Get(fmt.Sprintf("%s/:id", controller.Routes.Users), controller.UsersShow, protected).
		SetName("users.show.get")
	app.Patch(fmt.Sprintf("%s/:id", controller.Routes.Users), controller.UsersUpdate, protected).
		SetName("users.show.patch")
	app.Delete(fmt.Sprintf("%s/:id", controller.Routes.Users), controller.UsersDelete, protected).
		SetName("users.show.delete")

	return controller
}

// LoginRequest is the form payload for the token endpoint.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenResponse is the successful login body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginPost exchanges email/password for a bearer token. Malformed payloads,
// unknown users and bad passwords all get the same 400.
func (a *AccountController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, detailBody(TextCodeInvalidCredentials))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, detailBody(TextCodeInvalidCredentials))
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// LogoutPost acknowledges a logout. Tokens are stateless so there is nothing
// to revoke; the already-issued token stays valid until expiry and the client
// is expected to discard it.
func (a *AccountController) LogoutPost(ctx router.Context) error {
	return ctx.Status(router.StatusNoContent).SendString("")
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

func (a *AccountController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, detailBody("invalid payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, detailBody(err.Error()))
	}

	user, err := a.Manager.Register(ctx.Context(), RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, NewUserRead(user))
}

// UserUpdateRequest is the patch payload for both the self and the admin
// routes. The self route ignores the authorization flags.
type UserUpdateRequest struct {
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	IsVerified  *bool   `json:"is_verified"`
}

// Validate will validate the payload
func (r UserUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	)
}

func (r UserUpdateRequest) toPatch(includeFlags bool) UserPatch {
	patch := UserPatch{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}

	if includeFlags {
		patch.IsActive = r.IsActive
		patch.IsSuperuser = r.IsSuperuser
		patch.IsVerified = r.IsVerified
	}

	return patch
}

// UsersMe returns the account behind the presented token.
func (a *AccountController) UsersMe(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewUserRead(user))
}

// UsersMeUpdate applies a partial update to the caller's own account.
func (a *AccountController) UsersMeUpdate(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	payload := new(UserUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update user parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, detailBody("invalid payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, detailBody(err.Error()))
	}

	updated, err := a.Manager.UpdateUser(ctx.Context(), user.ID, payload.toPatch(false))
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewUserRead(updated))
}

// UsersShow returns any account by id. Superusers only.
func (a *AccountController) UsersShow(ctx router.Context) error {
	id, err := a.requireSuperuser(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	user, err := a.Manager.GetUser(ctx.Context(), id)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewUserRead(user))
}

// UsersUpdate patches any account by id, including the authorization flags.
// Superusers only.
func (a *AccountController) UsersUpdate(ctx router.Context) error {
	id, err := a.requireSuperuser(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	payload := new(UserUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update user parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, detailBody("invalid payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, detailBody(err.Error()))
	}

	updated, err := a.Manager.UpdateUser(ctx.Context(), id, payload.toPatch(true))
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewUserRead(updated))
}

// UsersDelete soft-deletes an account. Superusers only.
func (a *AccountController) UsersDelete(ctx router.Context) error {
	id, err := a.requireSuperuser(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	if err := a.Manager.DeleteUser(ctx.Context(), id); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.Status(router.StatusNoContent).SendString("")
}

// currentUser resolves the middleware-verified claims to a live record. The
// record is re-read on every request; a deactivated or deleted account fails
// even while its token is still unexpired.
func (a *AccountController) currentUser(ctx router.Context) (*User, error) {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return nil, ErrTokenMalformed
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "token subject is not a valid user id").
			WithCode(goerrors.CodeUnauthorized)
	}

	user, err := a.Manager.GetUser(ctx.Context(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserInactive
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}

// requireSuperuser authorizes the admin routes and parses the target id.
func (a *AccountController) requireSuperuser(ctx router.Context) (uuid.UUID, error) {
	user, err := a.currentUser(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	if !user.IsSuperuser {
		return uuid.Nil, goerrors.New("the account is not allowed to manage users", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return uuid.Nil, ErrIdentityNotFound
	}

	return id, nil
}

func (a *AccountController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	if status >= router.StatusInternalServerError {
		a.Logger.Error("account controller error: %v", richErr)
	}

	detail := richErr.TextCode
	if detail == "" {
		detail = richErr.Message
	}

	return ctx.JSON(status, detailBody(detail))
}

func detailBody(detail string) map[string]string {
	return map[string]string{"detail": detail}
}
