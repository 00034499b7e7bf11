package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	repo "storefront/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

var (
	//401 トークンなし・不正
	ErrAuthenticationRequired = NewHTTPError(http.StatusUnauthorized, "authentication required")
	//403 権限なし
	ErrAuthorizationDenied = NewHTTPError(http.StatusForbidden, "forbidden")
	//404
	ErrNotFound = NewHTTPError(http.StatusNotFound, "not found")
	//503 DBなどに届かない
	ErrDependencyUnavailable = NewHTTPError(http.StatusServiceUnavailable, "service unavailable")
	//500
	ErrInternal = NewHTTPError(http.StatusInternalServerError, "internal error")
)

// 400。メッセージには問題のあるフィールド名を入れる
func ValidationFailed(msg string) error {
	return NewHTTPError(http.StatusBadRequest, msg)
}

// 409
func Conflict(msg string) error {
	return NewHTTPError(http.StatusConflict, msg)
}

// リポジトリのエラーをHTTPErrorにする。中身は外に出さない
func fromRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrConflict):
		return Conflict("conflict")
	case errors.Is(err, repo.ErrUnavailable):
		return ErrDependencyUnavailable
	default:
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
}

// 監査ログ用
func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
