package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/domain"
)

// MeHandler returns the authenticated identity attached to the request.
type MeHandler struct{}

// NewMeHandler creates a new me handler.
func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// Handle processes the /me endpoint.
func (h *MeHandler) Handle(c echo.Context) error {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, identity)
}
