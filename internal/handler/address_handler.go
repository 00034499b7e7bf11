package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AddressHandler struct {
	uc *usecase.AddressUsecase
}

func NewAddressHandler(uc *usecase.AddressUsecase) *AddressHandler {
	return &AddressHandler{uc: uc}
}

func (h *AddressHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/users/me/addresses", h.List, g.Auth, g.User)
	e.POST("/users/me/addresses", h.Create, g.Auth, g.User)

	addr := e.Group("/addresses", g.Auth, g.User)
	addr.PUT("/:id", h.Update)
	addr.DELETE("/:id", h.Delete)
	addr.PUT("/:id/default", h.SetDefault)
}

func (h *AddressHandler) List(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	list, err := h.uc.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, list)
}

func (h *AddressHandler) Create(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req usecase.AddressRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	created, err := h.uc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusCreated, created)
}

func (h *AddressHandler) Update(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req usecase.AddressRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	updated, err := h.uc.Update(c.Request().Context(), userID, c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, updated)
}

func (h *AddressHandler) Delete(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, map[string]string{"id": c.Param("id")})
}

func (h *AddressHandler) SetDefault(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.SetDefault(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, map[string]string{"id": c.Param("id")})
}
