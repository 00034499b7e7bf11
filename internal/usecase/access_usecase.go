package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// IDプロバイダのトークンから取り出した本人情報
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type Capability struct {
	IsAdmin bool        `json:"is_admin"`
	User    *model.User `json:"user"`
	// ユーザーストアに届かず許可リストで判定した
	Degraded bool `json:"degraded,omitempty"`
}

// AccessUsecase は管理者かどうかの判定を1か所にまとめる
type AccessUsecase struct {
	users     repo.UserRepository
	allowList map[string]struct{}
}

func NewAccessUsecase(users repo.UserRepository, adminEmails []string) *AccessUsecase {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = model.NormalizeEmail(e); e != "" {
			allow[e] = struct{}{}
		}
	}
	return &AccessUsecase{users: users, allowList: allow}
}

func (u *AccessUsecase) allowed(id *Identity) bool {
	_, ok := u.allowList[model.NormalizeEmail(id.Email)]
	return ok
}

// Resolve は権限を調べるだけで拒否はしない
func (u *AccessUsecase) Resolve(ctx context.Context, id *Identity) (Capability, error) {
	if id == nil || id.Subject == "" {
		return Capability{}, nil
	}

	user, err := u.users.FindByExternalID(ctx, id.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return Capability{}, nil
	}
	if err != nil {
		slog.Warn("user lookup failed, using admin allow-list",
			slog.String("subject", id.Subject), slog.String("error", err.Error()))
		return Capability{IsAdmin: u.allowed(id), Degraded: true}, nil
	}

	return Capability{IsAdmin: user.IsAdmin(), User: user}, nil
}

// RequireAdmin は 401（本人情報なし）/ 404（ユーザー未登録）/ 403（管理者でない）を返す
func (u *AccessUsecase) RequireAdmin(ctx context.Context, id *Identity) (Capability, error) {
	if id == nil || id.Subject == "" {
		return Capability{}, ErrAuthenticationRequired
	}

	user, err := u.users.FindByExternalID(ctx, id.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return Capability{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		if len(u.allowList) == 0 {
			return Capability{}, ErrDependencyUnavailable
		}
		if !u.allowed(id) {
			return Capability{}, ErrAuthorizationDenied
		}
		slog.Warn("admin admitted by allow-list while user store is unavailable",
			slog.String("subject", id.Subject), slog.String("error", err.Error()))
		return Capability{IsAdmin: true, Degraded: true}, nil
	}

	if !user.IsAdmin() {
		return Capability{}, ErrAuthorizationDenied
	}
	return Capability{IsAdmin: true, User: user}, nil
}

// 呼び出し元（所有者チェック用）
type Caller struct {
	UserID  string
	IsAdmin bool
}

func (c Caller) CanAccess(ownerID string) bool {
	return c.IsAdmin || (c.UserID != "" && c.UserID == ownerID)
}
