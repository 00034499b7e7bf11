package repository

import (
	"context"

	"storefront/internal/domain/model"
)

const (
	SortDefault   = ""
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Category string
	// name/descriptionの部分一致（大文字小文字無視）
	Q    string
	Sort string
	// falseなら公開商品のみ
	IncludeInactive bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id string) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// 可変項目をまとめて書き換える
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id string) error
}
