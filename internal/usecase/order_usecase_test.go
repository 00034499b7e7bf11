package usecase_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type orderDeps struct {
	orders    *OrderRepoMock
	products  *ProductRepoMock
	users     *UserRepoMock
	addresses *AddressRepoMock
	publisher *PublisherMock
}

func newOrderUsecase() (*usecase.OrderUsecase, orderDeps) {
	d := orderDeps{
		orders:    new(OrderRepoMock),
		products:  new(ProductRepoMock),
		users:     new(UserRepoMock),
		addresses: new(AddressRepoMock),
		publisher: new(PublisherMock),
	}
	return usecase.NewOrderUsecase(d.orders, d.products, d.users, d.addresses, d.publisher, nil), d
}

func homeAddress(userID string) model.Address {
	return model.Address{
		ID: "a1", UserID: userID, FullName: "Taro", PhoneNumber: "0900000000",
		Area: "1-2-3", City: "Shibuya", State: "Tokyo", Pincode: "1500001",
	}
}

func headphone() model.Product {
	return model.Product{
		ID: "p1", Name: "Headphone", Price: 250, OfferPrice: 200,
		Category: model.CategoryHeadphone, Stock: 10, IsActive: true,
	}
}

func TestOrderUsecase_PlaceOrder_Stripe(t *testing.T) {
	uc, d := newOrderUsecase()

	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	d.products.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	d.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == "u1" && o.Amount == 660 && o.Shipping == 0 && o.Tax == 60 &&
			o.Status == model.OrderStatusPending && o.Address.City == "Shibuya" &&
			len(o.Items) == 1 && o.Items[0].Price == 200 && o.Items[0].Quantity == 3
	})).Return(nil)
	d.publisher.On("Publish", mock.Anything, event.TopicOrderCreated, mock.Anything, mock.Anything).Return(nil)
	d.users.On("FindByID", mock.Anything, "u1").Return(&model.User{ID: "u1", Cart: model.Cart{"p1": 3}}, nil)
	d.users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return len(u.Cart) == 0
	})).Return(nil)

	o, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID:  "a1",
		Items:      []usecase.LineInput{{ProductID: "p1", Quantity: 1}, {ProductID: "p1", Quantity: 2}},
		Provider:   "stripe",
		PaymentRef: "pi_123",
	})
	assert.NoError(t, err)
	assert.Equal(t, 660.0, o.Amount)
	assert.Equal(t, 600.0, o.Subtotal)
	d.orders.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
	d.users.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_CODUsesFlooredTax(t *testing.T) {
	uc, d := newOrderUsecase()

	d.products.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	d.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.users.On("FindByID", mock.Anything, "u1").Return(&model.User{ID: "u1"}, nil)

	addr := homeAddress("u1").Snapshot()
	o, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		Address: &addr,
		Items:   []usecase.LineInput{{ProductID: "p1", Quantity: 3}},
	})
	assert.NoError(t, err)
	assert.Equal(t, model.ProviderCOD, o.Provider)
	assert.Equal(t, 612.0, o.Amount)
	assert.Equal(t, 12.0, o.Tax)
	assert.Equal(t, 0.0, o.Shipping)
	// カートが空なら更新しない
	d.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_InsufficientStock(t *testing.T) {
	uc, d := newOrderUsecase()

	p := headphone()
	p.Stock = 2
	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	d.products.On("FindByID", mock.Anything, "p1").Return(p, nil)

	_, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 3}},
	})
	assertErrContains(t, err, "Insufficient stock for Headphone")
	d.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	d.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_DuplicateLinesOverflow(t *testing.T) {
	uc, d := newOrderUsecase()

	p := headphone()
	p.Stock = 5
	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil).Maybe()
	d.products.On("FindByID", mock.Anything, "p1").Return(p, nil).Maybe()

	half := int64(math.MaxInt64/2 + 1)
	_, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: half}, {ProductID: "p1", Quantity: half}},
	})
	assertErrContains(t, err, "invalid quantity")
	d.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	d.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_DuplicateLinesOverStock(t *testing.T) {
	uc, d := newOrderUsecase()

	p := headphone()
	p.Stock = 5
	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	d.products.On("FindByID", mock.Anything, "p1").Return(p, nil)

	_, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 3}, {ProductID: "p1", Quantity: 3}},
	})
	assertErrContains(t, err, "Insufficient stock for Headphone")
	d.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_InactiveProduct(t *testing.T) {
	uc, d := newOrderUsecase()

	p := headphone()
	p.IsActive = false
	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	d.products.On("FindByID", mock.Anything, "p1").Return(p, nil)

	_, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 1}},
	})
	assertErrContains(t, err, "Product unavailable: p1")
}

func TestOrderUsecase_PlaceOrder_ForeignAddress(t *testing.T) {
	uc, d := newOrderUsecase()
	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("someone-else"), nil)

	_, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 1}},
	})
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok) {
		assert.Equal(t, http.StatusNotFound, he.Status)
		assert.Equal(t, "address not found", he.Message)
	}
}

func TestOrderUsecase_PlaceOrder_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   usecase.PlaceOrderInput
		want string
	}{
		{"no items", usecase.PlaceOrderInput{AddressID: "a1"}, "items required"},
		{"zero quantity", usecase.PlaceOrderInput{AddressID: "a1", Items: []usecase.LineInput{{ProductID: "p1"}}}, "invalid quantity"},
		{"unknown provider", usecase.PlaceOrderInput{AddressID: "a1", Provider: "paypal"}, "invalid provider"},
		{"missing payment ref", usecase.PlaceOrderInput{AddressID: "a1", Provider: "razorpay"}, "payment_ref required"},
		{"no address", usecase.PlaceOrderInput{Items: []usecase.LineInput{{ProductID: "p1", Quantity: 1}}}, "address required"},
		{"incomplete address", usecase.PlaceOrderInput{Address: &model.ShippingAddress{FullName: "Taro"}}, "address incomplete"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, d := newOrderUsecase()
			d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)

			_, err := uc.PlaceOrder(context.Background(), "u1", tc.in)
			assertErrContains(t, err, tc.want)
		})
	}
}

func TestOrderUsecase_PlaceOrder_PublishFailureStillSucceeds(t *testing.T) {
	uc, d := newOrderUsecase()

	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	d.products.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	d.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("Publish", mock.Anything, event.TopicOrderCreated, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))
	d.users.On("FindByID", mock.Anything, "u1").Return(nil, repo.ErrUnavailable)

	o, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 1}},
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	d.publisher.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_StoreFailure(t *testing.T) {
	uc, d := newOrderUsecase()

	d.addresses.On("FindByID", mock.Anything, "a1").Return(homeAddress("u1"), nil)
	d.products.On("FindByID", mock.Anything, "p1").Return(headphone(), nil)
	d.orders.On("Create", mock.Anything, mock.Anything).Return(repo.ErrUnavailable)

	_, err := uc.PlaceOrder(context.Background(), "u1", usecase.PlaceOrderInput{
		AddressID: "a1",
		Items:     []usecase.LineInput{{ProductID: "p1", Quantity: 1}},
	})
	assert.Equal(t, usecase.ErrDependencyUnavailable, err)
	d.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// Get / ListByUser
// =====================

func TestOrderUsecase_Get_OtherUsersOrderIsHidden(t *testing.T) {
	uc, d := newOrderUsecase()
	d.orders.On("FindByID", mock.Anything, "o1").Return(model.Order{ID: "o1", UserID: "u2"}, nil)

	_, err := uc.Get(context.Background(), usecase.Caller{UserID: "u1"}, "o1")
	assert.Equal(t, usecase.ErrNotFound, err)
}

func TestOrderUsecase_Get_AdminSeesAnyOrder(t *testing.T) {
	uc, d := newOrderUsecase()
	d.orders.On("FindByID", mock.Anything, "o1").Return(model.Order{ID: "o1", UserID: "u2"}, nil)

	o, err := uc.Get(context.Background(), usecase.Caller{UserID: "admin", IsAdmin: true}, "o1")
	assert.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestOrderUsecase_ListByUser_Forbidden(t *testing.T) {
	uc, _ := newOrderUsecase()

	_, err := uc.ListByUser(context.Background(), usecase.Caller{UserID: "u1"}, "u2", 1, 20)
	assert.Equal(t, usecase.ErrAuthorizationDenied, err)
}

func TestOrderUsecase_ListByUser_Success(t *testing.T) {
	uc, d := newOrderUsecase()
	d.orders.On("ListByUserID", mock.Anything, "u1", 2, 5).Return([]model.Order{{ID: "o1"}}, int64(6), nil)

	out, err := uc.ListByUser(context.Background(), usecase.Caller{UserID: "u1"}, "u1", 2, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), out.Total)
	assert.Equal(t, 2, out.Page)
	d.orders.AssertExpectations(t)
}
