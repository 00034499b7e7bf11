package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/event"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type OrderUsecase struct {
	orders    repo.OrderRepository
	users     repo.UserRepository
	publisher event.Publisher
	metrics   metrics.Recorder
	lines     lineResolver
	address   addressResolver
}

func NewOrderUsecase(
	orders repo.OrderRepository,
	products repo.ProductRepository,
	users repo.UserRepository,
	addresses repo.AddressRepository,
	publisher event.Publisher,
	rec metrics.Recorder,
) *OrderUsecase {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &OrderUsecase{
		orders:    orders,
		users:     users,
		publisher: publisher,
		metrics:   rec,
		lines:     lineResolver{products: products, metrics: rec},
		address:   addressResolver{addresses: addresses},
	}
}

type PlaceOrderInput struct {
	// 保存済み住所かAddressのどちらか
	AddressID  string
	Address    *model.ShippingAddress
	Items      []LineInput
	Provider   string
	PaymentRef string
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (model.Order, error) {
	if userID == "" {
		return model.Order{}, ErrAuthenticationRequired
	}

	provider := model.PaymentProvider(strings.TrimSpace(in.Provider))
	if provider == "" {
		provider = model.ProviderCOD
	}
	if !provider.Valid() {
		return model.Order{}, ValidationFailed("invalid provider")
	}
	paymentRef := strings.TrimSpace(in.PaymentRef)
	if provider != model.ProviderCOD && paymentRef == "" {
		return model.Order{}, ValidationFailed("payment_ref required")
	}

	addr, err := u.address.resolve(ctx, userID, in.AddressID, in.Address)
	if err != nil {
		return model.Order{}, err
	}

	lines, err := u.lines.resolve(ctx, in.Items)
	if err != nil {
		return model.Order{}, err
	}
	rule, _ := pricing.RuleFor(provider)
	b := rule.Quote(lines)

	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}

	now := time.Now()
	o := model.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Items:      items,
		Address:    addr,
		Subtotal:   b.Subtotal,
		Shipping:   b.Shipping,
		Tax:        b.Tax,
		Amount:     b.Total,
		Provider:   provider,
		PaymentRef: paymentRef,
		Status:     model.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.orders.Create(ctx, o); err != nil {
		return model.Order{}, fromRepoErr(err)
	}
	u.metrics.RecordOrderCreated(string(provider))

	// 発行に失敗しても注文は成立させる（pendingのまま残る）
	if err := u.publisher.Publish(ctx, event.TopicOrderCreated, o.ID, event.OrderPayload{Order: o}); err != nil {
		slog.Error("failed to publish order/created",
			slog.String("order_id", o.ID), slog.String("error", err.Error()))
	}

	u.clearCart(ctx, userID)
	return o, nil
}

// 注文後にカートを空にする。失敗しても注文には影響させない
func (u *OrderUsecase) clearCart(ctx context.Context, userID string) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		slog.Warn("cart not cleared", slog.String("user_id", userID), slog.String("error", err.Error()))
		return
	}
	if len(user.Cart) == 0 {
		return
	}
	user.Cart = model.Cart{}
	user.UpdatedAt = time.Now()
	if err := u.users.Update(ctx, user); err != nil {
		slog.Warn("cart not cleared", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

// 本人か管理者のみ。他人の注文は存在を見せない
func (u *OrderUsecase) Get(ctx context.Context, caller Caller, orderID string) (model.Order, error) {
	if caller.UserID == "" && !caller.IsAdmin {
		return model.Order{}, ErrAuthenticationRequired
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, fromRepoErr(err)
	}
	if !caller.CanAccess(o.UserID) {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) ListByUser(ctx context.Context, caller Caller, userID string, page, limit int) (OrderListOutput, error) {
	if caller.UserID == "" && !caller.IsAdmin {
		return OrderListOutput{}, ErrAuthenticationRequired
	}
	if !caller.CanAccess(userID) {
		return OrderListOutput{}, ErrAuthorizationDenied
	}
	if page < 1 {
		return OrderListOutput{}, ValidationFailed("invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, ValidationFailed("invalid limit")
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, fromRepoErr(err)
	}
	return OrderListOutput{Items: orders, Total: total, Page: page, Limit: limit}, nil
}
