package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済プロバイダ側の支払いを準備する。注文はPOST /ordersで作る
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutRequest struct {
	AddressID string                 `json:"address_id"`
	Address   *model.ShippingAddress `json:"address"`
	Items     []usecase.LineInput    `json:"items"`
}

func (r CheckoutRequest) input() usecase.CheckoutInput {
	return usecase.CheckoutInput{AddressID: r.AddressID, Address: r.Address, Items: r.Items}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.POST("/payment/create-intent", h.createIntent, g.Auth, g.User, g.RateLimit)
	e.POST("/payment/create-order", h.createOrder, g.Auth, g.User, g.RateLimit)
}

// Provider A
func (h *CheckoutHandler) createIntent(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CheckoutRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateStripeIntent(c.Request().Context(), userID, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

// Provider B
func (h *CheckoutHandler) createOrder(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CheckoutRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateRazorpayOrder(c.Request().Context(), userID, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}
