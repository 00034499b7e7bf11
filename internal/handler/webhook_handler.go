package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const signatureHeader = "X-Signature-256"

// IDプロバイダからのユーザー同期イベント
type IdentityEvent struct {
	Type string            `json:"type"`
	Data IdentityEventUser `json:"data"`
}

type IdentityEventUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type WebhookHandler struct {
	users  *usecase.UserUsecase
	secret []byte
}

func NewWebhookHandler(users *usecase.UserUsecase, secret string) *WebhookHandler {
	return &WebhookHandler{users: users, secret: []byte(secret)}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/identity", h.identity)
}

func (h *WebhookHandler) identity(c echo.Context) error {
	if len(h.secret) == 0 {
		return writeError(c, usecase.NewHTTPError(http.StatusServiceUnavailable, "webhook not configured"))
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return writeError(c, usecase.ValidationFailed("invalid body"))
	}
	if !Verify(h.secret, body, c.Request().Header.Get(signatureHeader)) {
		return writeError(c, usecase.NewHTTPError(http.StatusUnauthorized, "invalid signature"))
	}

	var ev IdentityEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return writeError(c, usecase.ValidationFailed("invalid body"))
	}

	ctx := c.Request().Context()
	switch ev.Type {
	case "user.created", "user.updated":
		u, err := h.users.Sync(ctx, usecase.Identity{
			Subject: ev.Data.ID,
			Email:   ev.Data.Email,
			Name:    ev.Data.Name,
			Picture: ev.Data.ImageURL,
		})
		if err != nil {
			return writeError(c, err)
		}
		return respond(c, http.StatusOK, u)
	case "user.deleted":
		if err := h.users.Deprovision(ctx, ev.Data.ID); err != nil {
			return writeError(c, err)
		}
		return respond(c, http.StatusOK, map[string]string{"id": ev.Data.ID})
	default:
		// 未対応のイベントは受け取るだけ
		slog.Info("identity webhook ignored", slog.String("type", ev.Type))
		return respond(c, http.StatusOK, map[string]string{"ignored": ev.Type})
	}
}

// Verify は "sha256=<hex>" 形式の署名を定数時間で比較する
func Verify(secret, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(strings.TrimSpace(header), "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign はテストと送信側ツール用
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
