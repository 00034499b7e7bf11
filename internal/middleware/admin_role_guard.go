package middleware

import (
	"log/slog"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthJWTの後に置く。管理者でなければ403、ユーザー未登録は404
func RequireAdmin(access *usecase.AccessUsecase) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := IdentityFrom(c)

			cp, err := access.RequireAdmin(c.Request().Context(), id)
			if err != nil {
				return fail(c, err)
			}
			if cp.Degraded {
				slog.Warn("admin request served in degraded mode",
					slog.String("path", c.Path()), slog.String("subject", id.Subject))
			}

			c.Set(CtxCapabilityKey, cp)
			if cp.User != nil {
				c.Set(CtxUserKey, cp.User)
			}
			return next(c)
		}
	}
}

// AuthJWTの後に置く。初回アクセスならユーザーを作る。無効化されたユーザーは403
func LoadUser(users *usecase.UserUsecase) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return fail(c, usecase.ErrAuthenticationRequired)
			}

			u, err := users.EnsureUser(c.Request().Context(), *id)
			if err != nil {
				return fail(c, err)
			}

			c.Set(CtxUserKey, u)
			return next(c)
		}
	}
}
