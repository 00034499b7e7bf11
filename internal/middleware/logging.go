package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"storefront/internal/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const headerRequestID = "X-Request-ID"

// RequestID は受け取ったX-Request-IDを引き継ぐ。なければ採番する
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, id)
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

// RequestLogger は1リクエスト1行のJSONログを出す。
// 5xxはError、4xxはWarn
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// echo.HTTPErrorなどはここでレスポンスにする
				c.Error(err)
			}

			status := c.Response().Status
			latency := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", status),
				slog.Float64("latency_ms", latency),
			}
			if id, ok := c.Get(CtxRequestIDKey).(string); ok {
				args = append(args, slog.String("request_id", id))
			}
			if actor := ActorID(c); actor != "" {
				args = append(args, slog.String("user", actor))
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(c.Request().Context(), level, "http_request", args...)
			return nil
		}
	}
}

// Metrics はルート（パターン）単位でリクエスト数を数える
func Metrics(rec metrics.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			rec.RecordHTTPRequest(c.Request().Method, route, c.Response().Status)
			return nil
		}
	}
}

// Recovery はpanicを500にしてプロセスを落とさない
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					err = errorJSON(c, http.StatusInternalServerError, "internal error")
				}
			}()
			return next(c)
		}
	}
}
