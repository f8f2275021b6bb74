package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewOrderItem_ComputesTotalPrice(t *testing.T) {
	item := NewOrderItem("p-1", "keyboard", 3, price("19.99"))

	assert.True(t, item.TotalPrice.Equal(price("59.97")),
		"got %s", item.TotalPrice)
}

func TestNewOrder_TotalIsSumOfItemTotals(t *testing.T) {
	o := NewOrder("cust-1", []OrderItem{
		NewOrderItem("p-1", "keyboard", 2, price("19.99")),
		NewOrderItem("p-2", "mouse", 1, price("9.50")),
	})

	require.Equal(t, OrderPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(price("49.48")), "got %s", o.TotalAmount)
	assert.NotEmpty(t, o.ID)
	assert.NotEmpty(t, o.SagaID)
	assert.NotEqual(t, o.ID, o.SagaID)
	assert.Zero(t, o.Version)
}

func TestOrder_AddAndRemoveItemRecalculateTotal(t *testing.T) {
	o := NewOrder("cust-1", []OrderItem{
		NewOrderItem("p-1", "keyboard", 1, price("10")),
	})

	o.AddItem(NewOrderItem("p-2", "mouse", 2, price("5")))
	assert.True(t, o.TotalAmount.Equal(price("20")), "got %s", o.TotalAmount)

	o.RemoveItem("p-1")
	require.Len(t, o.Items, 1)
	assert.True(t, o.TotalAmount.Equal(price("10")), "got %s", o.TotalAmount)

	o.RemoveItem("p-2")
	assert.Empty(t, o.Items)
	assert.True(t, o.TotalAmount.IsZero())
}

var allStatuses = []OrderStatus{
	OrderPending, OrderInventoryReserved, OrderInventoryFailed,
	OrderPaymentProcessing, OrderPaymentCompleted, OrderPaymentFailed,
	OrderCompleted, OrderCancelled, OrderCompensating,
}

// Mirrors the saga state machine pair by pair so any accidental edit to the
// transition table fails here.
func TestOrderStatus_TransitionTable(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderPending:           {OrderInventoryReserved: true, OrderInventoryFailed: true, OrderCancelled: true},
		OrderInventoryReserved: {OrderPaymentProcessing: true, OrderCompensating: true},
		OrderPaymentProcessing: {OrderPaymentCompleted: true, OrderPaymentFailed: true},
		OrderPaymentCompleted:  {OrderCompleted: true},
		OrderPaymentFailed:     {OrderCompensating: true, OrderCancelled: true},
		OrderInventoryFailed:   {OrderCompensating: true, OrderCancelled: true},
		OrderCompensating:      {OrderCancelled: true},
		OrderCompleted:         {},
		OrderCancelled:         {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equalf(t, allowed[from][to], from.CanTransitionTo(to),
				"%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range allStatuses {
		assert.Equal(t, s == OrderCompleted || s == OrderCancelled, s.Terminal(),
			"status %s", s)
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, OrderStatus("SHIPPED").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrder_TransitionTo(t *testing.T) {
	o := NewOrder("cust-1", []OrderItem{NewOrderItem("p-1", "keyboard", 1, price("10"))})
	before := o.UpdatedAt

	require.NoError(t, o.TransitionTo(OrderInventoryReserved))
	assert.Equal(t, OrderInventoryReserved, o.Status)
	assert.False(t, o.UpdatedAt.Before(before))

	err := o.TransitionTo(OrderCompleted)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, OrderInventoryReserved, invalid.From)
	assert.Equal(t, OrderCompleted, invalid.To)

	// a rejected transition leaves the order untouched
	assert.Equal(t, OrderInventoryReserved, o.Status)
}

func TestOrder_MarkFailedKeepsStatus(t *testing.T) {
	o := NewOrder("cust-1", []OrderItem{NewOrderItem("p-1", "keyboard", 1, price("10"))})

	o.MarkFailed("insufficient stock")

	assert.Equal(t, OrderPending, o.Status)
	assert.Equal(t, "insufficient stock", o.FailureReason)
}
