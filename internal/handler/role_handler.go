package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spmukhedkar/user-role-system-server/internal/middleware"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/service"
)

// RoleHandler handles role endpoints.
type RoleHandler struct {
	svc service.RoleService
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(svc service.RoleService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

// CreateRoleRequest represents a role creation request.
type CreateRoleRequest struct {
	Name string `json:"name" validate:"max=255"`
}

// RoleResponse is returned by createRole.
type RoleResponse struct {
	Message string     `json:"message"`
	Role    model.Role `json:"role"`
}

// RolesResponse lists roles.
type RolesResponse struct {
	Count int          `json:"count"`
	Roles []model.Role `json:"roles"`
}

// CreateRole godoc
// @Summary Create a role
// @Description Admin only. Role names are unique.
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRoleRequest true "Role"
// @Success 201 {object} RoleResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /roles/createRole [post]
func (h *RoleHandler) CreateRole(c echo.Context) error {
	var req CreateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.svc.CreateRole(c.Request().Context(), req.Name)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, RoleResponse{Message: "Role Saved Successfully", Role: *role})
}

// GetAllRoles godoc
// @Summary List roles
// @Description Admin only.
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RolesResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /roles/getAllRoles [get]
func (h *RoleHandler) GetAllRoles(c echo.Context) error {
	roles, err := h.svc.ListRoles(c.Request().Context())
	if err != nil {
		return middleware.HTTPError(err)
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return c.JSON(http.StatusOK, RolesResponse{Count: len(roles), Roles: roles})
}
