package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/usecase"
)

// SessionHandler exposes a subject's own sessions: listing, logging a
// single device out, and logout-everywhere.
type SessionHandler struct {
	uc *usecase.ManageSessions
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(uc *usecase.ManageSessions) *SessionHandler {
	return &SessionHandler{uc: uc}
}

// sessionInfo is the JSON shape of one active session. The fingerprint
// is an opaque handle; the raw token is never echoed back.
type sessionInfo struct {
	Fingerprint  string    `json:"fingerprint"`
	Device       string    `json:"device,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	TokenExpires time.Time `json:"token_expires"`
}

type sessionListResponse struct {
	Sessions []sessionInfo `json:"sessions"`
}

type revokeResponse struct {
	Revoked int `json:"revoked"`
}

// HandleList processes GET /sessions.
func (h *SessionHandler) HandleList(c echo.Context) error {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	active, err := h.uc.List(c.Request().Context(), identity.SubjectID)
	if err != nil {
		return MapDomainError(err)
	}

	resp := sessionListResponse{Sessions: make([]sessionInfo, 0, len(active))}
	for _, s := range active {
		resp.Sessions = append(resp.Sessions, sessionInfo{
			Fingerprint:  s.Fingerprint.String(),
			Device:       s.Device,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
			TokenExpires: s.TokenExpires,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleRevokeAll processes DELETE /sessions (logout everywhere).
func (h *SessionHandler) HandleRevokeAll(c echo.Context) error {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	revoked, err := h.uc.RevokeAll(c.Request().Context(), identity.SubjectID)
	if err != nil {
		return MapDomainError(err)
	}
	return c.JSON(http.StatusOK, revokeResponse{Revoked: revoked})
}

// HandleRevokeOne processes DELETE /sessions/:fingerprint.
func (h *SessionHandler) HandleRevokeOne(c echo.Context) error {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	fp := domain.Fingerprint(c.Param("fingerprint"))
	if fp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fingerprint required")
	}

	if err := h.uc.RevokeOne(c.Request().Context(), identity.SubjectID, fp); err != nil {
		return MapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
