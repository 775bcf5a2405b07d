package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/usecase"
)

// AdminHandler exposes user administration: listing, provisioning,
// role changes, session revocation and removal. Routes using it sit
// behind the admin-role middleware; the usecases still enforce the
// hierarchy themselves.
type AdminHandler struct {
	users   *usecase.ManageUsers
	setRole *usecase.SetRole
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(users *usecase.ManageUsers, setRole *usecase.SetRole) *AdminHandler {
	return &AdminHandler{users: users, setRole: setRole}
}

type createUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=12"`
	DisplayName string `json:"display_name" validate:"max=128"`
	Role        string `json:"role" validate:"required"`
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type userResponse struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type userListResponse struct {
	Users []userResponse `json:"users"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID.String(),
		SubjectID:   u.SubjectID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func actorFrom(c echo.Context) (*domain.IdentityContext, error) {
	identity, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return identity, nil
}

// HandleList processes GET /admin/users.
func (h *AdminHandler) HandleList(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var query struct {
		Offset int `query:"offset"`
		Limit  int `query:"limit"`
	}
	if err := c.Bind(&query); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	users, err := h.users.List(c.Request().Context(), actor, query.Offset, query.Limit)
	if err != nil {
		return MapDomainError(err)
	}

	resp := userListResponse{Users: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleCreate processes POST /admin/users.
func (h *AdminHandler) HandleCreate(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return MapDomainError(err)
	}

	user, err := h.users.Create(c.Request().Context(), actor, usecase.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        role,
	})
	if err != nil {
		return MapDomainError(err)
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// HandleSetRole processes PATCH /admin/users/:subject_id/role.
func (h *AdminHandler) HandleSetRole(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return MapDomainError(err)
	}

	result, err := h.setRole.Execute(c.Request().Context(), actor, c.Param("subject_id"), role)
	if err != nil {
		return MapDomainError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleDelete processes DELETE /admin/users/:subject_id.
func (h *AdminHandler) HandleDelete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.Request().Context(), actor, c.Param("subject_id")); err != nil {
		return MapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleRevokeSessions processes POST /admin/users/:subject_id/revoke,
// forcing a re-authentication for every device of the target.
func (h *AdminHandler) HandleRevokeSessions(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	revoked, err := h.users.RevokeSessions(c.Request().Context(), actor, c.Param("subject_id"))
	if err != nil {
		return MapDomainError(err)
	}
	return c.JSON(http.StatusOK, revokeResponse{Revoked: revoked})
}
