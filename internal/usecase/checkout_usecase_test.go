package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/infra/payment"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCheckoutUsecase() (*usecase.CheckoutUsecase, *ProductRepoMock, *AddressRepoMock, *GatewayMock) {
	p, a, g := new(ProductRepoMock), new(AddressRepoMock), new(GatewayMock)
	uc := usecase.NewCheckoutUsecase(p, a, g, usecase.CheckoutConfig{
		StripeCurrency:   "usd",
		RazorpayCurrency: "INR",
		RazorpayKeyID:    "rzp_test_key",
	}, nil)
	return uc, p, a, g
}

func checkoutInput() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 3}},
	}
}

func TestCheckoutUsecase_CreateStripeIntent(t *testing.T) {
	uc, p, a, g := newCheckoutUsecase()

	a.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	p.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	g.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r payment.IntentRequest) bool {
		return r.AmountMinor == 66000 && r.Currency == "usd" && r.Metadata["userId"] == "u1"
	})).Return(payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)

	out, err := uc.CreateStripeIntent(context.Background(), "u1", checkoutInput())
	assert.NoError(t, err)
	assert.Equal(t, "pi_1_secret", out.ClientSecret)
	assert.Equal(t, int64(66000), out.Amount)
	assert.Equal(t, 660.0, out.Breakdown.Total)
	g.AssertExpectations(t)
}

func TestCheckoutUsecase_CreateStripeIntent_ShippingUnderThreshold(t *testing.T) {
	uc, p, a, g := newCheckoutUsecase()

	a.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	p.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	// 200 + 送料50 + 税20
	g.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r payment.IntentRequest) bool {
		return r.AmountMinor == 27000
	})).Return(payment.Intent{ID: "pi_2", ClientSecret: "s"}, nil)

	in := checkoutInput()
	in.Items[0].Quantity = 1
	out, err := uc.CreateStripeIntent(context.Background(), "u1", in)
	assert.NoError(t, err)
	assert.Equal(t, 50.0, out.Breakdown.Shipping)
}

func TestCheckoutUsecase_CreateRazorpayOrder(t *testing.T) {
	uc, p, a, g := newCheckoutUsecase()

	a.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	p.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	g.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r payment.OrderRequest) bool {
		return r.AmountMinor == 61200 && r.Currency == "INR" && len(r.Receipt) <= 40
	})).Return(payment.ProviderOrder{ID: "order_1", AmountMinor: 61200, Currency: "INR"}, nil)

	out, err := uc.CreateRazorpayOrder(context.Background(), "u1", checkoutInput())
	assert.NoError(t, err)
	assert.Equal(t, "order_1", out.OrderID)
	assert.Equal(t, "rzp_test_key", out.KeyID)
	assert.Equal(t, 612.0, out.Breakdown.Total)
	assert.Contains(t, out.Receipt, "rcpt_u1_")
}

func TestCheckoutUsecase_InsufficientStock_NoProviderCall(t *testing.T) {
	uc, p, a, g := newCheckoutUsecase()

	prod := headphone()
	prod.Stock = 1
	a.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	p.On("FindByID", mock.Anything, "p1").Return(prod, nil)

	_, err := uc.CreateStripeIntent(context.Background(), "u1", checkoutInput())
	assertErrContains(t, err, "Insufficient stock")
	g.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestCheckoutUsecase_ProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not configured", payment.ErrNotConfigured, "payment provider not configured"},
		{"provider down", errors.New("timeout"), "payment provider unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, p, a, g := newCheckoutUsecase()
			a.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
			p.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
			g.On("CreateOrder", mock.Anything, mock.Anything).Return(payment.ProviderOrder{}, tc.err)

			_, err := uc.CreateRazorpayOrder(context.Background(), "u1", checkoutInput())
			he, ok := usecase.AsHTTPError(err)
			if assert.True(t, ok) {
				assert.Equal(t, http.StatusServiceUnavailable, he.Status)
				assert.Equal(t, tc.want, he.Message)
			}
		})
	}
}

func TestCheckoutUsecase_Unauthenticated(t *testing.T) {
	uc, _, _, _ := newCheckoutUsecase()

	_, err := uc.CreateStripeIntent(context.Background(), "", checkoutInput())
	assert.Equal(t, usecase.ErrAuthenticationRequired, err)
}
