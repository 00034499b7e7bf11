// Package pricing は決済プロバイダごとの小計・送料・税・合計を計算する。
package pricing

import (
	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 1明細
type Line struct {
	ProductID string
	Name      string
	UnitPrice float64
	Quantity  int64
}

type Breakdown struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// 送料と税の決め方
type Rule struct {
	TaxRate decimal.Decimal
	// 税を整数に切り捨てる
	FloorTax bool
	// 送料を常に無料にする
	AlwaysFreeShipping bool
	ShippingFee        decimal.Decimal
	// 小計がこれを超えたら送料無料
	FreeShippingAbove decimal.Decimal
}

var (
	// Provider A: 税10%、小計500超で送料無料
	StripeRule = Rule{
		TaxRate:           decimal.RequireFromString("0.10"),
		ShippingFee:       decimal.NewFromInt(50),
		FreeShippingAbove: decimal.NewFromInt(500),
	}

	// Provider B: 税2%（切り捨て）、送料は常に無料
	RazorpayRule = Rule{
		TaxRate:            decimal.RequireFromString("0.02"),
		FloorTax:           true,
		AlwaysFreeShipping: true,
	}
)

// 代引きはProvider Bと同じ計算
func RuleFor(p model.PaymentProvider) (Rule, bool) {
	switch p {
	case model.ProviderStripe:
		return StripeRule, true
	case model.ProviderRazorpay, model.ProviderCOD:
		return RazorpayRule, true
	default:
		return Rule{}, false
	}
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(l.Quantity)))
	}
	return sum
}

func (r Rule) Quote(lines []Line) Breakdown {
	subtotal := Subtotal(lines)

	shipping := decimal.Zero
	if !r.AlwaysFreeShipping && subtotal.LessThanOrEqual(r.FreeShippingAbove) {
		shipping = r.ShippingFee
	}

	tax := subtotal.Mul(r.TaxRate)
	if r.FloorTax {
		tax = tax.Floor()
	} else {
		tax = tax.Round(2)
	}

	total := subtotal.Add(shipping).Add(tax)

	return Breakdown{
		Subtotal: subtotal.Round(2).InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.Round(2).InexactFloat64(),
	}
}

// 最小通貨単位（×100）の整数
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
