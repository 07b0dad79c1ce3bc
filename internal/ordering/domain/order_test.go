package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrder_ForwardTransitions(t *testing.T) {
	now := time.Now().UTC()
	o := NewOrder(uuid.New(), "pedido de prueba", now)

	assert.Equal(t, OrderSubmitted, o.Status)
	assert.NoError(t, o.SetAwaitingValidationStatus(now))
	assert.NoError(t, o.SetStockConfirmedStatus(now))
	assert.NoError(t, o.SetPaidStatus(now))
	assert.NoError(t, o.SetShippedStatus(now))
	assert.True(t, o.IsTerminal())
}

func TestOrder_NeverBackward(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		status OrderStatus
		move   func(o *Order) error
	}{
		{
			name:   "stock_confirmed no vuelve a awaiting_validation",
			status: OrderStockConfirmed,
			move:   func(o *Order) error { return o.SetAwaitingValidationStatus(now) },
		},
		{
			name:   "paid no vuelve a stock_confirmed",
			status: OrderPaid,
			move:   func(o *Order) error { return o.SetStockConfirmedStatus(now) },
		},
		{
			name:   "submitted no salta a paid",
			status: OrderSubmitted,
			move:   func(o *Order) error { return o.SetPaidStatus(now) },
		},
		{
			name:   "shipped es terminal",
			status: OrderShipped,
			move:   func(o *Order) error { return o.SetAwaitingValidationStatus(now) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrder(uuid.New(), "x", now)
			o.Status = tt.status
			assert.ErrorIs(t, tt.move(o), ErrInvalidTransition)
			assert.Equal(t, tt.status, o.Status)
		})
	}
}

func TestOrder_CancelledReachableFromNonTerminal(t *testing.T) {
	now := time.Now().UTC()

	for _, status := range []OrderStatus{OrderSubmitted, OrderAwaitingValidation, OrderStockConfirmed} {
		o := NewOrder(uuid.New(), "x", now)
		o.Status = status
		assert.NoError(t, o.SetCancelledStatus(now), "cancelable desde %s", status)
		assert.Equal(t, OrderCancelled, o.Status)
	}

	for _, status := range []OrderStatus{OrderPaid, OrderShipped, OrderCancelled} {
		o := NewOrder(uuid.New(), "x", now)
		o.Status = status
		assert.ErrorIs(t, o.SetCancelledStatus(now), ErrInvalidTransition, "no cancelable desde %s", status)
	}
}
