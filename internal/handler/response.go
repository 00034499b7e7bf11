package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 共通のレスポンス形式
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status"`
}

// ルート登録時に使うミドルウェア一式
type Guards struct {
	// トークン検証のみ
	Auth echo.MiddlewareFunc
	// ユーザーを読み込む（初回は作成）
	User echo.MiddlewareFunc
	// 管理者のみ
	Admin echo.MiddlewareFunc
	// 決済・注文作成の回数制限
	RateLimit echo.MiddlewareFunc
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Status: status})
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			slog.Error("request failed",
				slog.String("path", c.Path()), slog.Int("status", he.Status), slog.String("error", he.Message))
		}
		return c.JSON(he.Status, Envelope{Success: false, Error: he.Message, Status: he.Status})
	}

	//500 中身は出さない
	slog.Error("unexpected error", slog.String("path", c.Path()), slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, Envelope{
		Success: false,
		Error:   "internal error",
		Status:  http.StatusInternalServerError,
	})
}

const maxBodySize = 1 << 20

// 未知のフィールドは400
func bindStrict(c echo.Context, dst any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return usecase.ValidationFailed("empty body")
		}
		return usecase.ValidationFailed("invalid body")
	}
	return nil
}

// page/limitのクエリ（default 1 / 20）
func pageParams(c echo.Context) (int, int, error) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return 0, 0, usecase.ValidationFailed("invalid page")
	}
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		return 0, 0, usecase.ValidationFailed("invalid limit")
	}
	return page, limit, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// RFC3339の日時クエリ。未指定ならnil
func timeQuery(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	tm, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, usecase.ValidationFailed("invalid " + name)
	}
	return &tm, nil
}

func userIDFrom(c echo.Context) (string, error) {
	id := middleware.ActorID(c)
	if id == "" {
		return "", usecase.ErrAuthenticationRequired
	}
	return id, nil
}
