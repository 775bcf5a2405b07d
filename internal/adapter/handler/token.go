package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/infrastructure/token"
)

// TokenHandler mints short-lived backend JWTs for service-to-service
// calls made on behalf of an authenticated identity.
type TokenHandler struct {
	issuer *token.JWTIssuer
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(issuer *token.JWTIssuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

type backendTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// HandleBackendToken processes POST /token/backend.
func (h *TokenHandler) HandleBackendToken(c echo.Context) error {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	signed, err := h.issuer.IssueBackendToken(identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "token generation error")
	}
	return c.JSON(http.StatusOK, backendTokenResponse{
		Token:     signed,
		ExpiresIn: int(h.issuer.TTL().Seconds()),
	})
}
