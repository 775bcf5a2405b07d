package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/usecase"
)

// InternalHandler handles internal service-to-service requests. Routes
// using it sit behind the shared-secret middleware.
type InternalHandler struct {
	repairer *usecase.ClaimRepairer
}

// NewInternalHandler creates a new internal handler.
func NewInternalHandler(repairer *usecase.ClaimRepairer) *InternalHandler {
	return &InternalHandler{repairer: repairer}
}

type resyncResponse struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// HandleClaimResync rewrites every role claim from the durable store.
// Used after bulk imports or provider-side metadata loss.
func (h *InternalHandler) HandleClaimResync(c echo.Context) error {
	ctx := c.Request().Context()

	synced, failed, err := h.repairer.ResyncAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "claim resync failed", "error", err, "remote_addr", c.RealIP())
		return MapDomainError(err)
	}

	slog.InfoContext(ctx, "claim resync requested",
		"synced", synced,
		"failed", failed,
		"remote_addr", c.RealIP())
	return c.JSON(http.StatusOK, resyncResponse{Synced: synced, Failed: failed})
}
