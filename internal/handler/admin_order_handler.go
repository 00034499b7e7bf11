package handler

import (
	"net/http"

	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/orders", h.list, g.Auth, g.Admin)
	e.GET("/admin/orders", h.list, g.Auth, g.Admin)
	e.PATCH("/admin/orders/:id/status", h.updateStatus, g.Auth, g.Admin)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	from, err := timeQuery(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: c.QueryParam("user_id"),
		From:   from,
		To:     to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	var req OrderStatusUpdateRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	//操作した管理者IDを取得（監査ログ用）
	adminID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	o, err := h.uc.UpdateStatus(c.Request().Context(), adminID, c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, o)
}
