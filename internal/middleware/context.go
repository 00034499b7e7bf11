package middleware

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	CtxIdentityKey   = "identity"   // *usecase.Identity
	CtxUserKey       = "user"       // *model.User
	CtxCapabilityKey = "capability" // usecase.Capability
	CtxRequestIDKey  = "request_id" // string
)

func IdentityFrom(c echo.Context) (*usecase.Identity, bool) {
	id, ok := c.Get(CtxIdentityKey).(*usecase.Identity)
	return id, ok && id != nil
}

func UserFrom(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(CtxUserKey).(*model.User)
	return u, ok && u != nil
}

func CapabilityFrom(c echo.Context) (usecase.Capability, bool) {
	cp, ok := c.Get(CtxCapabilityKey).(usecase.Capability)
	return cp, ok
}

// 操作者のID。劣化モードでユーザーが読めないときはIDプロバイダのsubを使う
func ActorID(c echo.Context) string {
	if u, ok := UserFrom(c); ok {
		return u.ID
	}
	if cp, ok := CapabilityFrom(c); ok && cp.User != nil {
		return cp.User.ID
	}
	if id, ok := IdentityFrom(c); ok {
		return id.Subject
	}
	return ""
}

// 所有者チェック用の呼び出し元
func CallerFrom(c echo.Context) usecase.Caller {
	caller := usecase.Caller{UserID: ActorID(c)}
	if u, ok := UserFrom(c); ok {
		caller.IsAdmin = u.IsAdmin()
	}
	if cp, ok := CapabilityFrom(c); ok && cp.IsAdmin {
		caller.IsAdmin = true
	}
	return caller
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Success: false, Error: msg, Status: status})
}

// usecaseのエラーをそのまま返す。想定外は500
func fail(c echo.Context, err error) error {
	if he, ok := usecase.AsHTTPError(err); ok {
		return errorJSON(c, he.Status, he.Message)
	}
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}
