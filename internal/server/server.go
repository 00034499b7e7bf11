package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Server struct {
	e    *echo.Echo
	addr string
}

func New(e *echo.Echo, addr string) *Server {
	e.Server.ReadHeaderTimeout = 10 * time.Second
	return &Server{e: e, addr: addr}
}

// Start はShutdownされるまでブロックする
func (s *Server) Start() error {
	slog.Info("http server listening", slog.String("addr", s.addr))
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
