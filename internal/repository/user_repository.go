package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	// external_id/emailが重複したらErrConflict
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID string) (*model.User, error)
	// IDプロバイダ側のIDで取得
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page int, limit int) ([]model.User, int64, error)
	// ユーザー情報の更新=>名前・メール・ロール・有効フラグ・カート・最終ログインなど
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, userID string) error
}
