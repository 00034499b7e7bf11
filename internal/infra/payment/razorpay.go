package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

type RazorpayClient struct {
	client *razorpay.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{client: razorpay.NewClient(keyID, keySecret)}
}

// SDKはcontextを受けないので、呼ぶ前に打ち切りだけ確認する
func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (ProviderOrder, error) {
	if err := ctx.Err(); err != nil {
		return ProviderOrder{}, err
	}

	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		notes := map[string]interface{}{}
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := c.client.Order.Create(data, nil)
	if err != nil {
		return ProviderOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return ProviderOrder{}, fmt.Errorf("razorpay create order: missing id in response")
	}
	return ProviderOrder{ID: id, AmountMinor: req.AmountMinor, Currency: req.Currency}, nil
}
