package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo, metrics http.Handler) {
	e.GET("/healthz", h.healthz)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// ストアに届かなければ503
func (h *HealthHandler) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, Envelope{
			Success: false,
			Error:   "store unavailable",
			Status:  http.StatusServiceUnavailable,
		})
	}
	return respond(c, http.StatusOK, map[string]string{"status": "ok"})
}
