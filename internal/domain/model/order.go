package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending           OrderStatus = "PENDING"
	OrderInventoryReserved OrderStatus = "INVENTORY_RESERVED"
	OrderInventoryFailed   OrderStatus = "INVENTORY_FAILED"
	OrderPaymentProcessing OrderStatus = "PAYMENT_PROCESSING"
	OrderPaymentCompleted  OrderStatus = "PAYMENT_COMPLETED"
	OrderPaymentFailed     OrderStatus = "PAYMENT_FAILED"
	OrderCompleted         OrderStatus = "COMPLETED"
	OrderCancelled         OrderStatus = "CANCELLED"
	OrderCompensating      OrderStatus = "COMPENSATING"
)

// allowedTransitions is the saga state machine. Statuses missing from the
// map (COMPLETED, CANCELLED) are terminal.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:           {OrderInventoryReserved, OrderInventoryFailed, OrderCancelled},
	OrderInventoryReserved: {OrderPaymentProcessing, OrderCompensating},
	OrderPaymentProcessing: {OrderPaymentCompleted, OrderPaymentFailed},
	OrderPaymentCompleted:  {OrderCompleted},
	OrderPaymentFailed:     {OrderCompensating, OrderCancelled},
	OrderInventoryFailed:   {OrderCompensating, OrderCancelled},
	OrderCompensating:      {OrderCancelled},
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInventoryReserved, OrderInventoryFailed,
		OrderPaymentProcessing, OrderPaymentCompleted, OrderPaymentFailed,
		OrderCompleted, OrderCancelled, OrderCompensating:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

func NewOrderItem(productID, productName string, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

type Order struct {
	ID          string          `json:"id"           db:"id"`
	CustomerID  string          `json:"customer_id"  db:"customer_id"`
	Status      OrderStatus     `json:"status"       db:"status"`
	Items       []OrderItem     `json:"items"        db:"-"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"   db:"updated_at"`

	// Version guards optimistic-concurrency writes; the store rejects a
	// save whose version no longer matches the stored row.
	Version int64 `json:"version" db:"version"`

	// SagaID correlates inbound inventory/payment events back to the
	// order; external services key off it before they know the order id.
	SagaID string `json:"saga_id" db:"saga_id"`

	// FailureReason is set once on a failure path and kept for audit.
	FailureReason string `json:"failure_reason,omitempty" db:"failure_reason"`
}

func NewOrder(customerID string, items []OrderItem) *Order {
	now := time.Now().UTC()
	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     OrderPending,
		Items:      append([]OrderItem(nil), items...),
		SagaID:     uuid.New().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.recalculateTotal()
	return o
}

func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.recalculateTotal()
}

func (o *Order) RemoveItem(productID string) {
	items := o.Items[:0]
	for _, item := range o.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	o.Items = items
	o.recalculateTotal()
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice)
	}
	o.TotalAmount = total
}

// TransitionTo moves the order to target if the state machine allows it.
// Status and UpdatedAt change together or not at all.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records the failure reason for the audit trail. It never
// changes the status itself; callers pair it with a TransitionTo.
func (o *Order) MarkFailed(reason string) {
	o.FailureReason = reason
	o.UpdatedAt = time.Now().UTC()
}
