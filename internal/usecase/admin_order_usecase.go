package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type AdminOrderUsecase struct {
	orders    repo.OrderRepository
	auditRepo repo.AuditLogRepository
}

func NewAdminOrderUsecase(orders repo.OrderRepository, auditRepo repo.AuditLogRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{orders: orders, auditRepo: auditRepo}
}

// 注文一覧（ステータス・ユーザー・期間で絞り込み）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if f.Page < 1 {
		return OrderListOutput{}, ValidationFailed("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, ValidationFailed("invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, ValidationFailed("invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, ValidationFailed("from must be <= to")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, fromRepoErr(err)
	}
	return OrderListOutput{Items: orders, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// 前進かキャンセルのみ。終端の注文は変えられない。
// キャンセルしても在庫や決済は戻さない
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID string, orderID string, status string) (model.Order, error) {
	if actorAdminUserID == "" {
		return model.Order{}, ErrAuthenticationRequired
	}
	next := model.OrderStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return model.Order{}, ValidationFailed("invalid status")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, fromRepoErr(err)
	}

	// すでに同じなら何もしない（200）
	if o.Status == next {
		return o, nil
	}
	if !model.CanTransition(o.Status, next) {
		return model.Order{}, ValidationFailed("cannot change " + string(o.Status) + " order to " + string(next))
	}

	before := o.Status
	if err := u.orders.UpdateStatus(ctx, orderID, before, next); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return model.Order{}, Conflict("order status changed concurrently")
		}
		return model.Order{}, fromRepoErr(err)
	}
	o.Status = next
	o.UpdatedAt = time.Now()

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ID:           uuid.NewString(),
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   `{"status":"` + string(before) + `"}`,
		AfterJSON:    `{"status":"` + string(next) + `"}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return model.Order{}, fromRepoErr(err)
	}
	return o, nil
}
