// Package payment は外部の決済プロバイダ（Stripe / Razorpay）を包む。
package payment

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var ErrNotConfigured = errors.New("payment provider not configured")

type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// Provider A の決済インテント
type Intent struct {
	ID           string
	ClientSecret string
}

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Provider B の注文
type ProviderOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	CreateOrder(ctx context.Context, req OrderRequest) (ProviderOrder, error)
}

// Gateways は設定済みのクライアントだけを使う。未設定ならErrNotConfigured
type Gateways struct {
	Stripe   *StripeClient
	Razorpay *RazorpayClient
}

func (g Gateways) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if g.Stripe == nil {
		return Intent{}, ErrNotConfigured
	}
	return g.Stripe.CreateIntent(ctx, req)
}

func (g Gateways) CreateOrder(ctx context.Context, req OrderRequest) (ProviderOrder, error) {
	if g.Razorpay == nil {
		return ProviderOrder{}, ErrNotConfigured
	}
	return g.Razorpay.CreateOrder(ctx, req)
}

// Receipt は rcpt_<ユーザーID先頭8文字>_<unixミリ秒の下10桁>。最大40文字
func Receipt(userID string, now time.Time) string {
	prefix := userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 10 {
		ms = ms[len(ms)-10:]
	}
	r := "rcpt_" + prefix + "_" + ms
	if len(r) > 40 {
		r = r[:40]
	}
	return r
}
