package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"storefront/internal/infra/storage"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ImageStore interface {
	SaveImage(ctx context.Context, r io.Reader) (string, error)
}

// 商品画像のアップロード。返したURLを商品のimagesに入れる
type UploadHandler struct {
	store ImageStore
}

func NewUploadHandler(store ImageStore) *UploadHandler {
	return &UploadHandler{store: store}
}

func (h *UploadHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.POST("/upload", h.upload, g.Auth, g.User)
}

func (h *UploadHandler) upload(c echo.Context) error {
	// multipartのヘッダ分だけ余裕を持たせる
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, storage.MaxImageSize+64<<10)

	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, usecase.ValidationFailed("file required"))
	}
	if fh.Size > storage.MaxImageSize {
		return writeError(c, usecase.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large"))
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, usecase.ValidationFailed("file required"))
	}
	defer f.Close()

	url, err := h.store.SaveImage(c.Request().Context(), f)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return writeError(c, usecase.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large"))
	case errors.Is(err, storage.ErrUnsupportedType):
		return writeError(c, usecase.ValidationFailed("unsupported image type"))
	case err != nil:
		return writeError(c, err)
	}
	return respond(c, http.StatusCreated, map[string]string{"url": url})
}
