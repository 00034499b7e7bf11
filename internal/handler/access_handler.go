package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理画面を出すかどうかをクライアントが確認する
type AccessHandler struct {
	access *usecase.AccessUsecase
}

func NewAccessHandler(access *usecase.AccessUsecase) *AccessHandler {
	return &AccessHandler{access: access}
}

func (h *AccessHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/admin/check-access", h.check, g.Auth)
}

// 管理者でなくても200（is_admin=false）
func (h *AccessHandler) check(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	cp, err := h.access.Resolve(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, cp)
}
