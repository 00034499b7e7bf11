package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/infra/payment"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

type CheckoutConfig struct {
	StripeCurrency   string
	RazorpayCurrency string
	// クライアントのチェックアウト画面で使う公開キー
	RazorpayKeyID string
}

// CheckoutUsecase は決済プロバイダへの支払いリクエストを作る。注文は作らない
type CheckoutUsecase struct {
	lines   lineResolver
	address addressResolver
	gateway payment.Gateway
	cfg     CheckoutConfig
	now     func() time.Time
}

func NewCheckoutUsecase(
	products repo.ProductRepository,
	addresses repo.AddressRepository,
	gateway payment.Gateway,
	cfg CheckoutConfig,
	rec metrics.Recorder,
) *CheckoutUsecase {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CheckoutUsecase{
		lines:   lineResolver{products: products, metrics: rec},
		address: addressResolver{addresses: addresses},
		gateway: gateway,
		cfg:     cfg,
		now:     time.Now,
	}
}

type CheckoutInput struct {
	AddressID string
	Address   *model.ShippingAddress
	Items     []LineInput
}

type StripeIntentOutput struct {
	ClientSecret    string            `json:"client_secret"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Breakdown       pricing.Breakdown `json:"breakdown"`
}

type RazorpayOrderOutput struct {
	OrderID   string            `json:"order_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	KeyID     string            `json:"key_id"`
	Breakdown pricing.Breakdown `json:"breakdown"`
}

func (u *CheckoutUsecase) quote(ctx context.Context, userID string, in CheckoutInput, rule pricing.Rule) (pricing.Breakdown, error) {
	if userID == "" {
		return pricing.Breakdown{}, ErrAuthenticationRequired
	}
	if _, err := u.address.resolve(ctx, userID, in.AddressID, in.Address); err != nil {
		return pricing.Breakdown{}, err
	}
	lines, err := u.lines.resolve(ctx, in.Items)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return rule.Quote(lines), nil
}

// Provider A: 税10%、小計500超で送料無料。金額は最小単位（×100）
func (u *CheckoutUsecase) CreateStripeIntent(ctx context.Context, userID string, in CheckoutInput) (StripeIntentOutput, error) {
	b, err := u.quote(ctx, userID, in, pricing.StripeRule)
	if err != nil {
		return StripeIntentOutput{}, err
	}

	amount := pricing.MinorUnits(b.Total)
	intent, err := u.gateway.CreateIntent(ctx, payment.IntentRequest{
		AmountMinor: amount,
		Currency:    u.cfg.StripeCurrency,
		Metadata:    map[string]string{"userId": userID},
	})
	if err != nil {
		return StripeIntentOutput{}, providerErr("stripe", err)
	}

	return StripeIntentOutput{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          amount,
		Currency:        u.cfg.StripeCurrency,
		Breakdown:       b,
	}, nil
}

// Provider B: 税2%（切り捨て）、送料なし
func (u *CheckoutUsecase) CreateRazorpayOrder(ctx context.Context, userID string, in CheckoutInput) (RazorpayOrderOutput, error) {
	b, err := u.quote(ctx, userID, in, pricing.RazorpayRule)
	if err != nil {
		return RazorpayOrderOutput{}, err
	}

	amount := pricing.MinorUnits(b.Total)
	receipt := payment.Receipt(userID, u.now())
	order, err := u.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: amount,
		Currency:    u.cfg.RazorpayCurrency,
		Receipt:     receipt,
		Notes:       map[string]string{"userId": userID},
	})
	if err != nil {
		return RazorpayOrderOutput{}, providerErr("razorpay", err)
	}

	return RazorpayOrderOutput{
		OrderID:   order.ID,
		Amount:    amount,
		Currency:  u.cfg.RazorpayCurrency,
		Receipt:   receipt,
		KeyID:     u.cfg.RazorpayKeyID,
		Breakdown: b,
	}, nil
}

func providerErr(provider string, err error) error {
	slog.Error("payment provider call failed", slog.String("provider", provider), slog.String("error", err.Error()))
	if errors.Is(err, payment.ErrNotConfigured) {
		return NewHTTPError(http.StatusServiceUnavailable, "payment provider not configured")
	}
	return NewHTTPError(http.StatusServiceUnavailable, "payment provider unavailable")
}
