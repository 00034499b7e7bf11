package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// 保存済みの住所IDか住所そのもののどちらか
type OrderCreateRequest struct {
	AddressID  string                 `json:"address_id"`
	Address    *model.ShippingAddress `json:"address"`
	Items      []usecase.LineInput    `json:"items"`
	Provider   string                 `json:"provider"`
	PaymentRef string                 `json:"payment_ref"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.POST("/orders", h.create, g.Auth, g.User, g.RateLimit)
	e.GET("/orders/:id", h.detail, g.Auth, g.User)
	e.GET("/users/:id/orders", h.listByUser, g.Auth, g.User)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req OrderCreateRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	o, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		AddressID:  req.AddressID,
		Address:    req.Address,
		Items:      req.Items,
		Provider:   req.Provider,
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusCreated, o)
}

func (h *OrderHandler) detail(c echo.Context) error {
	o, err := h.uc.Get(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, o)
}

// /users/me/orders も受け付ける
func (h *OrderHandler) listByUser(c echo.Context) error {
	caller := middleware.CallerFrom(c)
	userID := c.Param("id")
	if userID == "me" {
		userID = caller.UserID
	}

	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListByUser(c.Request().Context(), caller, userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}
