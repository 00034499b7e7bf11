package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	repo "storefront/internal/repository"
)

// CartUsecase はユーザーに保存しているカート（商品ID→数量）を扱う
type CartUsecase struct {
	users    repo.UserRepository
	products repo.ProductRepository
}

func NewCartUsecase(users repo.UserRepository, products repo.ProductRepository) *CartUsecase {
	return &CartUsecase{users: users, products: products}
}

// priceは現在のoffer_price
type CartItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Image     string  `json:"image,omitempty"`
	// 非公開・削除済み・在庫不足ならfalse
	Available bool `json:"available"`
}

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Subtotal float64            `json:"subtotal"`
}

func (u *CartUsecase) GetCart(ctx context.Context, userID string) (CartResponse, error) {
	if userID == "" {
		return CartResponse{}, ErrAuthenticationRequired
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return CartResponse{}, fromRepoErr(err)
	}
	return u.buildCartResponse(ctx, user.Cart)
}

// ReplaceCart はカートを丸ごと置き換える。数量0はその商品を外す
func (u *CartUsecase) ReplaceCart(ctx context.Context, userID string, items map[string]int64) (CartResponse, error) {
	if userID == "" {
		return CartResponse{}, ErrAuthenticationRequired
	}

	cart := model.Cart{}
	for id, qty := range items {
		id = strings.TrimSpace(id)
		if id == "" {
			return CartResponse{}, ValidationFailed("invalid product_id")
		}
		if qty < 0 {
			return CartResponse{}, ValidationFailed("invalid quantity")
		}
		if qty == 0 {
			continue
		}
		p, err := u.products.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
			return CartResponse{}, ValidationFailed("Product unavailable: " + id)
		}
		if err != nil {
			return CartResponse{}, fromRepoErr(err)
		}
		cart[id] = qty
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return CartResponse{}, fromRepoErr(err)
	}
	user.Cart = cart
	user.UpdatedAt = time.Now()
	if err := u.users.Update(ctx, user); err != nil {
		return CartResponse{}, fromRepoErr(err)
	}
	return u.buildCartResponse(ctx, cart)
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, cart model.Cart) (CartResponse, error) {
	ids := make([]string, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := CartResponse{Items: make([]CartItemResponse, 0, len(ids))}
	var lines []pricing.Line
	for _, id := range ids {
		qty := cart[id]
		item := CartItemResponse{ProductID: id, Quantity: qty}

		p, err := u.products.FindByID(ctx, id)
		switch {
		case errors.Is(err, repo.ErrNotFound):
		case err != nil:
			return CartResponse{}, fromRepoErr(err)
		default:
			item.Name = p.Name
			item.Price = p.OfferPrice
			if len(p.Images) > 0 {
				item.Image = p.Images[0]
			}
			item.Available = p.IsActive && p.Stock >= qty
		}
		if item.Available {
			lines = append(lines, pricing.Line{ProductID: id, UnitPrice: item.Price, Quantity: qty})
		}
		out.Items = append(out.Items, item)
	}

	out.Subtotal = pricing.Subtotal(lines).Round(2).InexactFloat64()
	return out, nil
}
