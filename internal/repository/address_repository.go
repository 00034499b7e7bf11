package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口
type AddressRepository interface {
	Create(ctx context.Context, address model.Address) (model.Address, error)

	//ユーザーが持つ住所一覧を返す（デフォルト優先、新しい順）
	ListByUserID(ctx context.Context, userID string) ([]model.Address, error)

	CountByUserID(ctx context.Context, userID string) (int64, error)

	FindByID(ctx context.Context, addressID string) (model.Address, error)

	//宛名・連絡先・住所の更新。
	Update(ctx context.Context, address model.Address) error

	Delete(ctx context.Context, addressID string) error

	//ユーザーのデフォルトを指定住所だけにする。
	SetDefault(ctx context.Context, userID, addressID string) error
}
