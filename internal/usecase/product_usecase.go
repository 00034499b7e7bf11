package usecase

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/notify"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const maxProductImages = 10

// 通知は投げっぱなし。失敗は呼び出し側に返らない
type Notifier interface {
	Notify(ctx context.Context, kind string, payload any)
}

type ProductUsecase struct {
	productRepo repo.ProductRepository
	auditRepo   repo.AuditLogRepository
	notifier    Notifier
	sanitizer   *bluemonday.Policy
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
	notifier Notifier,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		notifier:    notifier,
		// 名前・説明はプレーンテキストとして保存する
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Category string
	Q        string
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, false)
}

// 管理画面用。非公開の商品も含む
func (u *ProductUsecase) AdminList(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, true)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput, includeInactive bool) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, ValidationFailed("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, ValidationFailed("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, ValidationFailed("q too long")
	}
	switch in.Sort {
	case repo.SortDefault, repo.SortNewest, repo.SortPriceAsc, repo.SortPriceDesc:
	default:
		return ProductListOutput{}, ValidationFailed("invalid sort")
	}
	category := strings.TrimSpace(in.Category)
	if category != "" && category != model.CategoryAll && !model.Category(category).Valid() {
		return ProductListOutput{}, ValidationFailed("invalid category")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:            in.Page,
		Limit:           in.Limit,
		Category:        category,
		Q:               strings.TrimSpace(in.Q),
		Sort:            in.Sort,
		IncludeInactive: includeInactive,
	})
	if err != nil {
		return ProductListOutput{}, fromRepoErr(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 非公開の商品は見つからない扱い
func (u *ProductUsecase) Get(ctx context.Context, productID string) (model.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return model.Product{}, ValidationFailed("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, fromRepoErr(err)
	}
	if !p.IsActive {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

type CreateProductInput struct {
	Name        string
	Description string
	Price       *float64
	OfferPrice  *float64
	Images      []string
	Category    string
	Stock       *int64
	IsActive    *bool
}

func (u *ProductUsecase) Create(ctx context.Context, adminUserID string, in CreateProductInput) (model.Product, error) {
	if adminUserID == "" {
		return model.Product{}, ErrAuthenticationRequired
	}

	name := u.clean(in.Name)
	description := u.clean(in.Description)
	switch {
	case name == "":
		return model.Product{}, ValidationFailed("name required")
	case description == "":
		return model.Product{}, ValidationFailed("description required")
	case in.Price == nil:
		return model.Product{}, ValidationFailed("price required")
	case in.OfferPrice == nil:
		return model.Product{}, ValidationFailed("offer_price required")
	case strings.TrimSpace(in.Category) == "":
		return model.Product{}, ValidationFailed("category required")
	}
	images, err := cleanImages(in.Images)
	if err != nil {
		return model.Product{}, err
	}

	now := time.Now()
	p := model.Product{
		ID:          uuid.NewString(),
		CreatedBy:   adminUserID,
		Name:        name,
		Description: description,
		Price:       *in.Price,
		OfferPrice:  *in.OfferPrice,
		Images:      images,
		Category:    model.Category(strings.TrimSpace(in.Category)),
		IsActive:    true,
		Ratings:     []model.Rating{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return model.Product{}, fromRepoErr(err)
	}

	u.notifier.Notify(ctx, notify.KindProductCreated, created)
	return created, nil
}

// 指定された項目だけ更新する
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	OfferPrice  *float64
	Images      []string
	Category    *string
	Stock       *int64
	IsActive    *bool
}

func (u *ProductUsecase) Update(ctx context.Context, adminUserID string, productID string, in UpdateProductInput) (model.Product, error) {
	if adminUserID == "" {
		return model.Product{}, ErrAuthenticationRequired
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, fromRepoErr(err)
	}

	if in.Name != nil {
		if p.Name = u.clean(*in.Name); p.Name == "" {
			return model.Product{}, ValidationFailed("name required")
		}
	}
	if in.Description != nil {
		if p.Description = u.clean(*in.Description); p.Description == "" {
			return model.Product{}, ValidationFailed("description required")
		}
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.OfferPrice != nil {
		p.OfferPrice = *in.OfferPrice
	}
	if in.Images != nil {
		if p.Images, err = cleanImages(in.Images); err != nil {
			return model.Product{}, err
		}
	}
	if in.Category != nil {
		p.Category = model.Category(strings.TrimSpace(*in.Category))
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}

	p.UpdatedAt = time.Now()
	if err := u.productRepo.Update(ctx, p); err != nil {
		return model.Product{}, fromRepoErr(err)
	}
	return p, nil
}

// 物理削除。過去の注文はスナップショットを持つので影響しない
func (u *ProductUsecase) Delete(ctx context.Context, adminUserID string, productID string) error {
	if adminUserID == "" {
		return ErrAuthenticationRequired
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return fromRepoErr(err)
	}
	if err := u.productRepo.Delete(ctx, productID); err != nil {
		return fromRepoErr(err)
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ID:           uuid.NewString(),
		ActorUserID:  adminUserID,
		Action:       model.AuditActionDeleteProduct,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   `{"name":` + quoteJSON(p.Name) + `}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return fromRepoErr(err)
	}
	return nil
}

// ユーザーごとに1件。再投稿は置き換え
func (u *ProductUsecase) Rate(ctx context.Context, userID string, productID string, value int) (model.Product, error) {
	if userID == "" {
		return model.Product{}, ErrAuthenticationRequired
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, fromRepoErr(err)
	}
	if !p.IsActive {
		return model.Product{}, ErrNotFound
	}

	now := time.Now()
	if err := p.Rate(userID, value, now); err != nil {
		return model.Product{}, ValidationFailed(err.Error())
	}
	p.UpdatedAt = now
	if err := u.productRepo.Update(ctx, p); err != nil {
		return model.Product{}, fromRepoErr(err)
	}
	return p, nil
}

// タグを落としてからエスケープを戻す（保存はプレーンテキスト）
func (u *ProductUsecase) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(u.sanitizer.Sanitize(s)))
}

func cleanImages(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, img := range in {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	if len(out) == 0 {
		return nil, ValidationFailed("images required")
	}
	if len(out) > maxProductImages {
		return nil, ValidationFailed("too many images")
	}
	return out, nil
}

func validateProduct(p model.Product) error {
	err := p.Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrOfferPriceAbovePrice),
		errors.Is(err, model.ErrNegativePrice),
		errors.Is(err, model.ErrNegativeStock),
		errors.Is(err, model.ErrInvalidCategory):
		return ValidationFailed(err.Error())
	default:
		return ValidationFailed("invalid product")
	}
}
