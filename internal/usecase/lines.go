package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// 注文・決済で受け取る明細。価格は受け取らない
type LineInput struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// lineResolver は明細ごとに現在の商品を読み直し、価格を確定する
type lineResolver struct {
	products repo.ProductRepository
	metrics  metrics.Recorder
}

// 同じ商品は数量をまとめる。順番は最初に出てきた順
func mergeLines(in []LineInput) ([]LineInput, error) {
	if len(in) == 0 {
		return nil, ValidationFailed("items required")
	}
	idx := map[string]int{}
	out := make([]LineInput, 0, len(in))
	for _, l := range in {
		id := strings.TrimSpace(l.ProductID)
		if id == "" {
			return nil, ValidationFailed("product_id required")
		}
		if l.Quantity < 1 {
			return nil, ValidationFailed("invalid quantity")
		}
		if i, ok := idx[id]; ok {
			// 合計がint64を超える数量は在庫を確認するまでもなく不正
			if l.Quantity > math.MaxInt64-out[i].Quantity {
				return nil, ValidationFailed("invalid quantity")
			}
			out[i].Quantity += l.Quantity
			continue
		}
		idx[id] = len(out)
		out = append(out, LineInput{ProductID: id, Quantity: l.Quantity})
	}
	return out, nil
}

// 1件ずつ順番に確認する。在庫の引当はしない
func (r lineResolver) resolve(ctx context.Context, in []LineInput) ([]pricing.Line, error) {
	merged, err := mergeLines(in)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(merged))
	for _, l := range merged {
		p, err := r.products.FindByID(ctx, l.ProductID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
			r.metrics.RecordCheckoutRejected("unavailable")
			return nil, ValidationFailed("Product unavailable: " + l.ProductID)
		}
		if err != nil {
			return nil, fromRepoErr(err)
		}
		if l.Quantity > p.Stock {
			r.metrics.RecordCheckoutRejected("insufficient_stock")
			return nil, ValidationFailed("Insufficient stock for " + p.Name)
		}

		lines = append(lines, pricing.Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.OfferPrice,
			Quantity:  l.Quantity,
		})
	}
	return lines, nil
}

type addressResolver struct {
	addresses repo.AddressRepository
}

// 保存済み住所（本人のもの）か、入力された住所のスナップショットを返す
func (r addressResolver) resolve(ctx context.Context, userID, addressID string, addr *model.ShippingAddress) (model.ShippingAddress, error) {
	if id := strings.TrimSpace(addressID); id != "" {
		a, err := r.addresses.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && a.UserID != userID) {
			return model.ShippingAddress{}, NewHTTPError(http.StatusNotFound, "address not found")
		}
		if err != nil {
			return model.ShippingAddress{}, fromRepoErr(err)
		}
		return a.Snapshot(), nil
	}

	if addr == nil {
		return model.ShippingAddress{}, ValidationFailed("address required")
	}
	out := trimShipping(*addr)
	if !out.Complete() {
		return model.ShippingAddress{}, ValidationFailed("address incomplete")
	}
	return out, nil
}

func trimShipping(a model.ShippingAddress) model.ShippingAddress {
	return model.ShippingAddress{
		FullName:    strings.TrimSpace(a.FullName),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
		Area:        strings.TrimSpace(a.Area),
		City:        strings.TrimSpace(a.City),
		State:       strings.TrimSpace(a.State),
		Pincode:     strings.TrimSpace(a.Pincode),
	}
}
