package model_test

import (
	"testing"

	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
		want     bool
	}{
		{model.OrderStatusPending, model.OrderStatusProcessing, true},
		{model.OrderStatusPending, model.OrderStatusShipped, true},
		{model.OrderStatusProcessing, model.OrderStatusShipped, true},
		{model.OrderStatusShipped, model.OrderStatusDelivered, true},
		{model.OrderStatusPending, model.OrderStatusCancelled, true},
		{model.OrderStatusProcessing, model.OrderStatusCancelled, true},
		{model.OrderStatusShipped, model.OrderStatusCancelled, true},

		// 後退は不可
		{model.OrderStatusShipped, model.OrderStatusProcessing, false},
		{model.OrderStatusProcessing, model.OrderStatusPending, false},
		// 終端
		{model.OrderStatusDelivered, model.OrderStatusCancelled, false},
		{model.OrderStatusCancelled, model.OrderStatusPending, false},
		// 同じ
		{model.OrderStatusPending, model.OrderStatusPending, false},
		{model.OrderStatusPending, "lost", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, model.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatus_Reached(t *testing.T) {
	assert.True(t, model.OrderStatusShipped.Reached(model.OrderStatusProcessing))
	assert.True(t, model.OrderStatusProcessing.Reached(model.OrderStatusProcessing))
	assert.False(t, model.OrderStatusPending.Reached(model.OrderStatusProcessing))
	assert.False(t, model.OrderStatusCancelled.Reached(model.OrderStatusShipped))
	assert.False(t, model.OrderStatusShipped.Reached(model.OrderStatusCancelled))
}
