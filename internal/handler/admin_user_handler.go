package handler

import (
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.UserUsecase
}

func NewAdminUserHandler(uc *usecase.UserUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

type RoleUpdateRequest struct {
	Role string `json:"role"`
}

type StatusUpdateRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	// /admin/users 配下はJWT必須 + 管理者限定
	admin := e.Group("/admin/users", g.Auth, g.Admin)

	admin.GET("", h.list)
	admin.PATCH("/:id/role", h.updateRole)
	admin.PATCH("/:id/status", h.updateStatus)
}

func (h *AdminUserHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminList(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *AdminUserHandler) updateRole(c echo.Context) error {
	adminID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req RoleUpdateRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	role := model.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	u, err := h.uc.AdminUpdateRole(c.Request().Context(), adminID, c.Param("id"), role)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, u)
}

func (h *AdminUserHandler) updateStatus(c echo.Context) error {
	adminID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req StatusUpdateRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.IsActive == nil {
		return writeError(c, usecase.ValidationFailed("is_active required"))
	}

	u, err := h.uc.AdminUpdateStatus(c.Request().Context(), adminID, c.Param("id"), *req.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, u)
}
