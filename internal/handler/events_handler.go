package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Subscriber interface {
	Subscribe() (<-chan []byte, func())
}

// 管理画面向けのServer-Sent Events
type EventsHandler struct {
	hub       Subscriber
	keepAlive time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func NewEventsHandler(hub Subscriber) *EventsHandler {
	return &EventsHandler{hub: hub, keepAlive: 25 * time.Second, done: make(chan struct{})}
}

func (h *EventsHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/admin/events", h.stream, g.Auth, g.Admin)
	// Shutdownはリクエストのctxをキャンセルしないので、開いているストリームをここで閉じる
	e.Server.RegisterOnShutdown(h.Close)
}

// Close は開いているストリームをすべて終わらせる
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *EventsHandler) stream(c echo.Context) error {
	ch, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
