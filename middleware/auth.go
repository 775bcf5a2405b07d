// Package middleware provides the echo middleware chain of the gateway:
// authentication, role gating, rate limiting, internal-route protection
// and response hardening.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/adapter/handler"
	"auth-gateway/internal/domain"
	"auth-gateway/internal/usecase"
)

const sessionTokenHeader = "X-Session-Token"

// Auth authenticates bearer tokens and attaches the resolved identity
// to the request context.
type Auth struct {
	authenticate *usecase.Authenticate
	logger       *slog.Logger
}

// NewAuth creates the authentication middleware.
func NewAuth(authenticate *usecase.Authenticate, logger *slog.Logger) *Auth {
	return &Auth{
		authenticate: authenticate,
		logger:       logger.With("component", "auth_middleware"),
	}
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Auth) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return handler.MapDomainError(err)
			}

			identity, err := a.authenticate.Execute(c.Request().Context(), token, c.Request().UserAgent())
			if err != nil {
				a.logger.Info("authentication rejected",
					"path", c.Path(),
					"remote_addr", c.RealIP(),
					"error", err)
				return handler.MapDomainError(err)
			}

			ctx := domain.WithIdentity(c.Request().Context(), identity.Context())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole rejects authenticated identities below the minimum role.
// It must run after RequireAuth.
func (a *Auth) RequireRole(min domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := domain.IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !identity.Role.Satisfies(min) {
				a.logger.Info("authorization denied",
					"subject_id", identity.SubjectID,
					"role", identity.Role,
					"required", min,
					"path", c.Path())
				return handler.MapDomainError(domain.ErrInsufficientPrivilege)
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token from the Authorization header, with
// X-Session-Token accepted for provider-native clients.
func bearerToken(c echo.Context) (string, error) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", domain.ErrTokenMalformed
		}
		return parts[1], nil
	}
	if token := c.Request().Header.Get(sessionTokenHeader); token != "" {
		return token, nil
	}
	return "", domain.ErrTokenMissing
}
