package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ログイン中のユーザー本人とカート
type UserHandler struct {
	cart *usecase.CartUsecase
}

func NewUserHandler(cart *usecase.CartUsecase) *UserHandler {
	return &UserHandler{cart: cart}
}

// 商品ID => 数量。0はカートから外す
type CartUpdateRequest struct {
	Items map[string]int64 `json:"items"`
}

func (h *UserHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	// /users/:id/orders と同じ階層なのでGroupは使わない
	e.GET("/users/me", h.me, g.Auth, g.User)
	e.GET("/users/me/cart", h.getCart, g.Auth, g.User)
	e.PUT("/users/me/cart", h.replaceCart, g.Auth, g.User)
}

func (h *UserHandler) me(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return writeError(c, usecase.ErrAuthenticationRequired)
	}
	return respond(c, http.StatusOK, u)
}

func (h *UserHandler) getCart(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.cart.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *UserHandler) replaceCart(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CartUpdateRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.cart.ReplaceCart(c.Request().Context(), userID, req.Items)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}
