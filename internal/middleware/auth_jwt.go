package middleware

import (
	"errors"
	"strings"

	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// IDプロバイダが発行したトークンの検証設定
type JWTConfig struct {
	Secret string
	// 空なら発行者は見ない
	Issuer string
}

var errInvalidToken = errors.New("invalid token")

// bearerAuth用のJWT検証ミドルウェア。
// 検証できたら本人情報をcontextへ入れる。ユーザーの読み込みはしない
func AuthJWT(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Bearer形式か確認してtokenを抜く
			authz := c.Request().Header.Get("Authorization")
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return fail(c, usecase.ErrAuthenticationRequired)
			}

			id, err := ParseIdentity(cfg, strings.TrimSpace(parts[1]))
			if err != nil {
				return fail(c, usecase.ErrAuthenticationRequired)
			}

			c.Set(CtxIdentityKey, id)
			return next(c)
		}
	}
}

// ParseIdentity はHS256の署名・有効期限・発行者を確認してclaimsを取り出す
func ParseIdentity(cfg JWTConfig, rawToken string) (*usecase.Identity, error) {
	if rawToken == "" || cfg.Secret == "" {
		return nil, errInvalidToken
	}

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
		return nil, errInvalidToken
	}

	sub := claimString(claims, "sub")
	if sub == "" {
		return nil, errInvalidToken
	}

	return &usecase.Identity{
		Subject: sub,
		Email:   claimString(claims, "email"),
		Name:    claimString(claims, "name"),
		Picture: claimString(claims, "picture"),
	}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}
