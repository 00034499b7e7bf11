package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

type RatingRequest struct {
	Rating int `json:"rating"`
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.POST("/products/:id/ratings", h.rate, g.Auth, g.User)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Category: c.QueryParam("category"),
		Q:        c.QueryParam("q"),
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	p, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, p)
}

func (h *ProductHandler) rate(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req RatingRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Rate(c.Request().Context(), userID, c.Param("id"), req.Rating)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, p)
}
