package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/domain"
)

// MapDomainError converts a domain error into an appropriate echo.HTTPError.
func MapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "token expired")

	case errors.Is(err, domain.ErrTokenMissing),
		errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenRevoked):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")

	case errors.Is(err, domain.ErrUnprovisioned):
		return echo.NewHTTPError(http.StatusForbidden, "no provisioned account")

	case errors.Is(err, domain.ErrInsufficientPrivilege),
		errors.Is(err, domain.ErrSelfOperation):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")

	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")

	case errors.Is(err, domain.ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, "user already exists")

	case errors.Is(err, domain.ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")

	case errors.Is(err, domain.ErrProviderUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider unavailable")

	case errors.Is(err, domain.ErrRevocationUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")

	case errors.Is(err, domain.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
