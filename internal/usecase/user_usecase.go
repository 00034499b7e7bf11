package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type UserUsecase struct {
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
}

func NewUserUsecase(users repo.UserRepository, auditRepo repo.AuditLogRepository) *UserUsecase {
	return &UserUsecase{users: users, auditRepo: auditRepo}
}

func validateIdentity(id Identity) error {
	if strings.TrimSpace(id.Subject) == "" {
		return ErrAuthenticationRequired
	}
	if model.NormalizeEmail(id.Email) == "" {
		return ValidationFailed("email required")
	}
	return nil
}

// EnsureUser はログイン中のユーザーを返す。初回ならここで作る
func (u *UserUsecase) EnsureUser(ctx context.Context, id Identity) (*model.User, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return nil, ErrAuthenticationRequired
	}

	user, err := u.users.FindByExternalID(ctx, id.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return u.Sync(ctx, id)
	}
	if err != nil {
		return nil, fromRepoErr(err)
	}
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "account disabled")
	}
	return user, nil
}

// Sync はIDプロバイダの情報でユーザーを作成または更新する
func (u *UserUsecase) Sync(ctx context.Context, id Identity) (*model.User, error) {
	if err := validateIdentity(id); err != nil {
		return nil, err
	}
	now := time.Now()
	email := model.NormalizeEmail(id.Email)
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = email
	}

	user, err := u.users.FindByExternalID(ctx, id.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		user = &model.User{
			ID:          uuid.NewString(),
			ExternalID:  id.Subject,
			Name:        name,
			Email:       email,
			ImageURL:    id.Picture,
			Role:        model.RoleCustomer,
			IsActive:    true,
			LastLoginAt: &now,
			Cart:        model.Cart{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := u.users.Create(ctx, user); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return nil, Conflict("email already in use")
			}
			return nil, fromRepoErr(err)
		}
		slog.Info("user created from identity", slog.String("user_id", user.ID))
		return user, nil
	}
	if err != nil {
		return nil, fromRepoErr(err)
	}

	user.Name = name
	user.Email = email
	user.ImageURL = id.Picture
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := u.users.Update(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, Conflict("email already in use")
		}
		return nil, fromRepoErr(err)
	}
	return user, nil
}

// Deprovision はIDプロバイダ側で削除されたユーザーを消す。いなければ何もしない
func (u *UserUsecase) Deprovision(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return ValidationFailed("id required")
	}
	user, err := u.users.FindByExternalID(ctx, externalID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fromRepoErr(err)
	}
	if err := u.users.Delete(ctx, user.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fromRepoErr(err)
	}
	slog.Info("user deprovisioned", slog.String("user_id", user.ID))
	return nil
}

type UserListOutput struct {
	Items []model.User `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *UserUsecase) AdminList(ctx context.Context, page, limit int) (UserListOutput, error) {
	if page < 1 {
		return UserListOutput{}, ValidationFailed("invalid page")
	}
	if limit < 1 || limit > 100 {
		return UserListOutput{}, ValidationFailed("invalid limit")
	}
	users, total, err := u.users.List(ctx, page, limit)
	if err != nil {
		return UserListOutput{}, fromRepoErr(err)
	}
	return UserListOutput{Items: users, Total: total, Page: page, Limit: limit}, nil
}

func (u *UserUsecase) AdminUpdateRole(ctx context.Context, actorUserID, userID string, role model.Role) (*model.User, error) {
	if actorUserID == "" {
		return nil, ErrAuthenticationRequired
	}
	if !role.Valid() {
		return nil, ValidationFailed("invalid role")
	}
	// 自分の権限を外して締め出されないように
	if actorUserID == userID && role != model.RoleAdmin {
		return nil, ValidationFailed("cannot change own role")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fromRepoErr(err)
	}
	if user.Role == role {
		return user, nil
	}

	before := string(user.Role)
	user.Role = role
	user.UpdatedAt = time.Now()
	if err := u.users.Update(ctx, user); err != nil {
		return nil, fromRepoErr(err)
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ID:           uuid.NewString(),
		ActorUserID:  actorUserID,
		Action:       model.AuditActionUpdateUserRole,
		ResourceType: model.AuditResourceUser,
		ResourceID:   user.ID,
		BeforeJSON:   `{"role":"` + before + `"}`,
		AfterJSON:    `{"role":"` + string(role) + `"}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, fromRepoErr(err)
	}
	return user, nil
}

func (u *UserUsecase) AdminUpdateStatus(ctx context.Context, actorUserID, userID string, isActive bool) (*model.User, error) {
	if actorUserID == "" {
		return nil, ErrAuthenticationRequired
	}
	if actorUserID == userID && !isActive {
		return nil, ValidationFailed("cannot deactivate yourself")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fromRepoErr(err)
	}
	if user.IsActive == isActive {
		return user, nil
	}

	user.IsActive = isActive
	user.UpdatedAt = time.Now()
	if err := u.users.Update(ctx, user); err != nil {
		return nil, fromRepoErr(err)
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ID:           uuid.NewString(),
		ActorUserID:  actorUserID,
		Action:       model.AuditActionUpdateUserStatus,
		ResourceType: model.AuditResourceUser,
		ResourceID:   user.ID,
		BeforeJSON:   `{"is_active":` + strconv.FormatBool(!isActive) + `}`,
		AfterJSON:    `{"is_active":` + strconv.FormatBool(isActive) + `}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, fromRepoErr(err)
	}
	return user, nil
}
