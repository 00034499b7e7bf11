package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 作成時は全項目必須。更新時は送られた項目だけ変える
type ProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	OfferPrice  *float64 `json:"offer_price"`
	Images      []string `json:"images"`
	Category    *string  `json:"category"`
	Stock       *int64   `json:"stock"`
	IsActive    *bool    `json:"is_active"`
}

// 商品の作成・更新・削除（管理者）
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/admin/products", h.list, g.Auth, g.Admin)

	e.POST("/products", h.createProduct, g.Auth, g.Admin)
	e.PUT("/products/:id", h.updateProduct, g.Auth, g.Admin)
	e.DELETE("/products/:id", h.deleteProduct, g.Auth, g.Admin)
}

func (h *AdminProductHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminList(c.Request().Context(), usecase.ListProductsInput{
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

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req ProductRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Create(c.Request().Context(), adminID, usecase.CreateProductInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Price:       req.Price,
		OfferPrice:  req.OfferPrice,
		Images:      req.Images,
		Category:    deref(req.Category),
		Stock:       req.Stock,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var req ProductRequest
	if err := bindStrict(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Update(c.Request().Context(), adminID, c.Param("id"), usecase.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		OfferPrice:  req.OfferPrice,
		Images:      req.Images,
		Category:    req.Category,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, err := userIDFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.Delete(c.Request().Context(), adminID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, map[string]string{"id": c.Param("id")})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
