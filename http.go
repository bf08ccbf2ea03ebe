package accounts

import (
	"context"

	"github.com/castlebay/go-accounts/middleware/jwtware"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator wires the token middleware for protected routes.
type RouteAuthenticator struct {
	auth         Authenticator
	tokens       TokenService
	cfg          Config
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(auther Authenticator, tokens TokenService, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		tokens: tokens,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// ProtectedRoute builds the middleware that guards bearer-token routes.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.ErrorHandler
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: validatorBridge{a.tokens},
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// defaultAuthErrHandler collapses every token defect into the same 401; the
// body never distinguishes a missing, expired, or forged token.
func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		a.Logger.Info("auth middleware rejected token: %s (%s)", richErr.Message, richErr.TextCode)
	} else {
		a.Logger.Info("auth middleware rejected request: %v", err)
	}

	return c.JSON(router.StatusUnauthorized, map[string]string{
		"detail": "Unauthorized",
	})
}

// validatorBridge narrows the accounts TokenService to the claims surface the
// middleware needs.
type validatorBridge struct {
	tokens TokenService
}

func (v validatorBridge) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
