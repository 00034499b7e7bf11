package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/memstore"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type mwErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()

	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"name":  "Taro",
		"iss":   "https://id.example.com",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func runRequest(t *testing.T, e *echo.Echo, method, path, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func identityEcho(cfg middleware.JWTConfig) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		id, _ := middleware.IdentityFrom(c)
		return c.JSON(http.StatusOK, map[string]string{"sub": id.Subject, "email": id.Email})
	}, middleware.AuthJWT(cfg))
	return e
}

// =====================
// AuthJWT
// =====================

func TestMiddleware_AuthJWT_Unauthorized(t *testing.T) {
	cfg := middleware.JWTConfig{Secret: testSecret, Issuer: "https://id.example.com"}

	expired := validClaims("sub-1")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	otherIssuer := validClaims("sub-1")
	otherIssuer["iss"] = "https://evil.example.com"

	noSub := validClaims("")

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"garbage", "Bearer abc.def.ghi"},
		{"bad signature", "Bearer " + mustMakeJWT(t, "other-secret", validClaims("sub-1"), jwt.SigningMethodHS256)},
		{"wrong alg", "Bearer " + mustMakeJWT(t, testSecret, validClaims("sub-1"), jwt.SigningMethodHS512)},
		{"expired", "Bearer " + mustMakeJWT(t, testSecret, expired, jwt.SigningMethodHS256)},
		{"issuer mismatch", "Bearer " + mustMakeJWT(t, testSecret, otherIssuer, jwt.SigningMethodHS256)},
		{"no subject", "Bearer " + mustMakeJWT(t, testSecret, noSub, jwt.SigningMethodHS256)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runRequest(t, identityEcho(cfg), http.MethodGet, "/protected", tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			body := decodeMWError(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, http.StatusUnauthorized, body.Status)
			assert.Equal(t, "authentication required", body.Error)
		})
	}
}

func TestMiddleware_AuthJWT_OK(t *testing.T) {
	cfg := middleware.JWTConfig{Secret: testSecret, Issuer: "https://id.example.com"}
	token := mustMakeJWT(t, testSecret, validClaims("sub-1"), jwt.SigningMethodHS256)

	rec := runRequest(t, identityEcho(cfg), http.MethodGet, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "sub-1", body["sub"])
	assert.Equal(t, "sub-1@example.com", body["email"])
}

func TestMiddleware_AuthJWT_IssuerOptional(t *testing.T) {
	claims := validClaims("sub-1")
	delete(claims, "iss")
	token := mustMakeJWT(t, testSecret, claims, jwt.SigningMethodHS256)

	rec := runRequest(t, identityEcho(middleware.JWTConfig{Secret: testSecret}), http.MethodGet, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =====================
// RequireAdmin / LoadUser
// =====================

func seedUser(t *testing.T, st *memstore.Store, u model.User) {
	t.Helper()
	u.IsActive = u.IsActive || u.Role == model.RoleAdmin
	require.NoError(t, st.Users().Create(context.Background(), &u))
}

func adminEcho(st *memstore.Store) *echo.Echo {
	e := echo.New()
	access := usecase.NewAccessUsecase(st.Users(), nil)
	e.GET("/admin/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"actor": middleware.ActorID(c)})
	}, middleware.AuthJWT(middleware.JWTConfig{Secret: testSecret}), middleware.RequireAdmin(access))
	return e
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	st := memstore.New()
	seedUser(t, st, model.User{ID: "u-admin", ExternalID: "sub-admin", Email: "a@example.com", Role: model.RoleAdmin})
	seedUser(t, st, model.User{ID: "u-cust", ExternalID: "sub-cust", Email: "c@example.com", Role: model.RoleCustomer, IsActive: true})

	cases := []struct {
		sub  string
		want int
	}{
		{"sub-admin", http.StatusOK},
		{"sub-cust", http.StatusForbidden},
		{"sub-nobody", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.sub, func(t *testing.T) {
			token := mustMakeJWT(t, testSecret, validClaims(tc.sub), jwt.SigningMethodHS256)
			rec := runRequest(t, adminEcho(st), http.MethodGet, "/admin/ping", "Bearer "+token)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMiddleware_RequireAdmin_ActorIsUserID(t *testing.T) {
	st := memstore.New()
	seedUser(t, st, model.User{ID: "u-admin", ExternalID: "sub-admin", Email: "a@example.com", Role: model.RoleAdmin})

	token := mustMakeJWT(t, testSecret, validClaims("sub-admin"), jwt.SigningMethodHS256)
	rec := runRequest(t, adminEcho(st), http.MethodGet, "/admin/ping", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "u-admin", body["actor"])
}

func TestMiddleware_LoadUser_CreatesAndBlocksDisabled(t *testing.T) {
	st := memstore.New()
	users := usecase.NewUserUsecase(st.Users(), st.AuditLogs())

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		u, _ := middleware.UserFrom(c)
		return c.JSON(http.StatusOK, map[string]string{"id": u.ID})
	}, middleware.AuthJWT(middleware.JWTConfig{Secret: testSecret}), middleware.LoadUser(users))

	token := mustMakeJWT(t, testSecret, validClaims("sub-new"), jwt.SigningMethodHS256)
	rec := runRequest(t, e, http.MethodGet, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := st.Users().FindByExternalID(context.Background(), "sub-new")
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, st.Users().Update(context.Background(), u))

	rec = runRequest(t, e, http.MethodGet, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account disabled", decodeMWError(t, rec).Error)
}

// =====================
// RateLimiter
// =====================

func TestMiddleware_RateLimiter_PerUser(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.PerMinute(2), nil)
	defer rl.Stop()

	e := echo.New()
	e.POST("/payment", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, middleware.AuthJWT(middleware.JWTConfig{Secret: testSecret}), rl.Middleware())

	alice := "Bearer " + mustMakeJWT(t, testSecret, validClaims("alice"), jwt.SigningMethodHS256)
	bob := "Bearer " + mustMakeJWT(t, testSecret, validClaims("bob"), jwt.SigningMethodHS256)

	assert.Equal(t, http.StatusOK, runRequest(t, e, http.MethodPost, "/payment", alice).Code)
	assert.Equal(t, http.StatusOK, runRequest(t, e, http.MethodPost, "/payment", alice).Code)

	rec := runRequest(t, e, http.MethodPost, "/payment", alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, runRequest(t, e, http.MethodPost, "/payment", bob).Code)
	assert.Equal(t, 2, rl.Count())
}

// =====================
// RequestID / Recovery
// =====================

func TestMiddleware_RequestID_Propagates(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestID())
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = runRequest(t, e, http.MethodGet, "/x", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMiddleware_Recovery(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Recovery())
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := runRequest(t, e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeMWError(t, rec).Error)
}
