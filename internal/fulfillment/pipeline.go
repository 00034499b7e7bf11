package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	"storefront/internal/notify"
	repo "storefront/internal/repository"
)

const (
	StepMarkProcessing   = "mark-processing"
	StepConfirmInventory = "confirm-inventory"
	StepMarkShipped      = "mark-shipped"
	StepEmitConfirmation = "emit-confirmation"
	StepNotifyConfirmed  = "notify-confirmation"
)

var errOrderCancelled = errors.New("order cancelled")

type Notifier interface {
	Notify(ctx context.Context, kind string, payload any)
}

// Pipeline は order/created を受けて注文を pending から shipped まで進める
type Pipeline struct {
	orders    repo.OrderRepository
	products  repo.ProductRepository
	publisher event.Publisher
	runner    *Runner

	inventoryDelay time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewPipeline(
	orders repo.OrderRepository,
	products repo.ProductRepository,
	publisher event.Publisher,
	runner *Runner,
	inventoryDelay time.Duration,
) *Pipeline {
	return &Pipeline{
		orders:         orders,
		products:       products,
		publisher:      publisher,
		runner:         runner,
		inventoryDelay: inventoryDelay,
		sleep:          sleepCtx,
	}
}

func (p *Pipeline) Register(c event.Consumer) {
	c.Subscribe(event.TopicOrderCreated, p.HandleOrderCreated)
}

func (p *Pipeline) HandleOrderCreated(ctx context.Context, msg event.Message) error {
	var payload event.OrderPayload
	if err := msg.Decode(&payload); err != nil {
		return fmt.Errorf("decode order/created: %w", err)
	}
	orderID := payload.Order.ID
	if orderID == "" {
		return errors.New("order/created without order id")
	}
	log := slog.With(slog.String("order_id", orderID))

	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{StepMarkProcessing, func(ctx context.Context) error {
			return p.advance(ctx, orderID, model.OrderStatusPending, model.OrderStatusProcessing)
		}},
		{StepConfirmInventory, func(ctx context.Context) error {
			return p.confirmInventory(ctx, orderID)
		}},
		{StepMarkShipped, func(ctx context.Context) error {
			return p.advance(ctx, orderID, model.OrderStatusProcessing, model.OrderStatusShipped)
		}},
		{StepEmitConfirmation, func(ctx context.Context) error {
			return p.emitConfirmation(ctx, orderID)
		}},
	}

	// 前の3ステップがすべて完了済みなら、確認メールは前回の実行で出ている
	alreadyDone := 0
	for i, s := range steps {
		if s.name == StepEmitConfirmation && alreadyDone == i {
			log.Info("order already fulfilled, confirmation not re-sent")
			return nil
		}
		fn := s.fn
		err := p.runner.Step(ctx, s.name, func(ctx context.Context) error {
			err := fn(ctx)
			if errors.Is(err, ErrSkip) {
				alreadyDone++
			}
			return err
		})
		if err != nil {
			if errors.Is(err, errOrderCancelled) {
				log.Info("order cancelled, fulfillment stopped", slog.String("step", s.name))
				return nil
			}
			// 最後に確定したステータスのまま残る
			log.Error("fulfillment step exhausted", slog.String("step", s.name), slog.String("error", err.Error()))
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	log.Info("order fulfilled")
	return nil
}

// from→to の条件付き更新。すでにto以降なら何もしない
func (p *Pipeline) advance(ctx context.Context, orderID string, from, to model.OrderStatus) error {
	o, err := p.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}

	switch {
	case o.Status == model.OrderStatusCancelled:
		return Permanent(errOrderCancelled)
	case o.Status.Reached(to):
		return ErrSkip
	}

	// 管理者が先に進めていた場合などはErrConflict。次の試行で読み直す
	return p.orders.UpdateStatus(ctx, orderID, o.Status, to)
}

// 在庫の引当はしない。読み取りで不足をログに残すだけ
func (p *Pipeline) confirmInventory(ctx context.Context, orderID string) error {
	o, err := p.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	if o.Status == model.OrderStatusCancelled {
		return Permanent(errOrderCancelled)
	}
	if o.Status.Reached(model.OrderStatusShipped) {
		return ErrSkip
	}

	if err := p.sleep(ctx, p.inventoryDelay); err != nil {
		return err
	}

	for _, it := range o.Items {
		prod, err := p.products.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			slog.Warn("ordered product no longer exists",
				slog.String("order_id", orderID), slog.String("product_id", it.ProductID))
			continue
		}
		if err != nil {
			return err
		}
		if prod.Stock < it.Quantity {
			slog.Warn("stock below ordered quantity",
				slog.String("order_id", orderID),
				slog.String("product_id", it.ProductID),
				slog.Int64("stock", prod.Stock),
				slog.Int64("quantity", it.Quantity),
			)
		}
	}
	return nil
}

func (p *Pipeline) emitConfirmation(ctx context.Context, orderID string) error {
	o, err := p.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	if o.Status == model.OrderStatusCancelled {
		return Permanent(errOrderCancelled)
	}
	return p.publisher.Publish(ctx, event.TopicOrderConfirmation, o.ID, event.OrderPayload{Order: o})
}

// Confirmer は email/order-confirmation を受けて確認通知を1回だけ出す
type Confirmer struct {
	notifier Notifier
	runner   *Runner
}

func NewConfirmer(notifier Notifier, runner *Runner) *Confirmer {
	return &Confirmer{notifier: notifier, runner: runner}
}

func (c *Confirmer) Register(consumer event.Consumer) {
	consumer.Subscribe(event.TopicOrderConfirmation, c.HandleOrderConfirmation)
}

func (c *Confirmer) HandleOrderConfirmation(ctx context.Context, msg event.Message) error {
	var payload event.OrderPayload
	if err := msg.Decode(&payload); err != nil {
		return fmt.Errorf("decode email/order-confirmation: %w", err)
	}

	return c.runner.Step(ctx, StepNotifyConfirmed, func(ctx context.Context) error {
		c.notifier.Notify(ctx, notify.KindOrderConfirmed, payload.Order)
		return nil
	})
}
