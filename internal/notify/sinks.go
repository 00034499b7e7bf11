package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	"storefront/internal/infra/mail"
	repo "storefront/internal/repository"
)

// BusSink は通知をイベントバスに流す（ダッシュボードなど別プロセス向け）
type BusSink struct {
	publisher event.Publisher
}

func NewBusSink(p event.Publisher) *BusSink {
	return &BusSink{publisher: p}
}

func (s *BusSink) Name() string { return "bus" }

func (s *BusSink) Deliver(ctx context.Context, n Notification) error {
	switch n.Kind {
	case KindProductCreated:
		p, ok := n.Payload.(model.Product)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", n.Payload, n.Kind)
		}
		return s.publisher.Publish(ctx, event.TopicProductCreated, p.ID, event.ProductPayload{Product: p})
	default:
		return nil
	}
}

// DashboardHub は管理画面へSSEで通知を流す。遅い購読者には落として送る
type DashboardHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewDashboardHub() *DashboardHub {
	return &DashboardHub{subs: map[chan []byte]struct{}{}}
}

func (h *DashboardHub) Name() string { return "dashboard" }

func (h *DashboardHub) Deliver(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// Subscribe は受信チャネルと解除関数を返す
func (h *DashboardHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// MailSink は注文確定メールを送る
type MailSink struct {
	users  repo.UserRepository
	sender mail.Sender
}

func NewMailSink(users repo.UserRepository, sender mail.Sender) *MailSink {
	return &MailSink{users: users, sender: sender}
}

func (s *MailSink) Name() string { return "mail" }

func (s *MailSink) Deliver(ctx context.Context, n Notification) error {
	if n.Kind != KindOrderConfirmed {
		return nil
	}
	o, ok := n.Payload.(model.Order)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", n.Payload, n.Kind)
	}

	u, err := s.users.FindByID(ctx, o.UserID)
	if err != nil {
		return fmt.Errorf("find user %s: %w", o.UserID, err)
	}

	return s.sender.Send(ctx, mail.Message{
		To:      u.Email,
		Subject: "Your order " + o.ID + " is on its way",
		Body:    confirmationBody(u.Name, o),
	})
}

func confirmationBody(name string, o model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThank you for your order %s.\n\n", name, o.ID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  %s x%d  %.2f\n", it.Name, it.Quantity, it.Price*float64(it.Quantity))
	}
	fmt.Fprintf(&b, "\nSubtotal: %.2f\nShipping: %.2f\nTax: %.2f\nTotal: %.2f\n", o.Subtotal, o.Shipping, o.Tax, o.Amount)
	fmt.Fprintf(&b, "\nShipping to: %s, %s, %s, %s %s\n", o.Address.FullName, o.Address.Area, o.Address.City, o.Address.State, o.Address.Pincode)
	return b.String()
}
