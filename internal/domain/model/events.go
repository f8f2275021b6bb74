package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderCommand struct {
	CustomerID string            `json:"customer_id"`
	Items      []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderEventType string

const (
	EventOrderCreated             OrderEventType = "ORDER_CREATED"
	EventOrderInventoryReserved   OrderEventType = "ORDER_INVENTORY_RESERVED"
	EventOrderInventoryFailed     OrderEventType = "ORDER_INVENTORY_FAILED"
	EventOrderPaymentProcessing   OrderEventType = "ORDER_PAYMENT_PROCESSING"
	EventOrderPaymentCompleted    OrderEventType = "ORDER_PAYMENT_COMPLETED"
	EventOrderPaymentFailed       OrderEventType = "ORDER_PAYMENT_FAILED"
	EventOrderCompleted           OrderEventType = "ORDER_COMPLETED"
	EventOrderCancelled           OrderEventType = "ORDER_CANCELLED"
	EventOrderCompensationStarted OrderEventType = "ORDER_COMPENSATION_STARTED"
)

// OrderEvent is the outbound event published after every successful saga
// operation, keyed by AggregateID so one consumer group observes all events
// of an order in emission order.
type OrderEvent struct {
	EventID       string          `json:"event_id"`
	Timestamp     time.Time       `json:"timestamp"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     OrderEventType  `json:"event_type"`
	CustomerID    string          `json:"customer_id"`
	Status        OrderStatus     `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []OrderItem     `json:"items"`
	SagaID        string          `json:"saga_id"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

type InventoryEventType string

const (
	InventoryReserved          InventoryEventType = "INVENTORY_RESERVED"
	InventoryReservationFailed InventoryEventType = "INVENTORY_RESERVATION_FAILED"
	InventoryReleased          InventoryEventType = "INVENTORY_RELEASED"
)

// InventoryEvent is produced by the external inventory service.
type InventoryEvent struct {
	EventID   string             `json:"event_id"`
	SagaID    string             `json:"saga_id"`
	OrderID   string             `json:"order_id"`
	EventType InventoryEventType `json:"event_type"`
	Reason    string             `json:"reason,omitempty"`
}

type PaymentEventType string

const (
	PaymentCompleted PaymentEventType = "PAYMENT_COMPLETED"
	PaymentFailed    PaymentEventType = "PAYMENT_FAILED"
	PaymentRefunded  PaymentEventType = "PAYMENT_REFUNDED"
)

// PaymentEvent is produced by the external payment service.
type PaymentEvent struct {
	EventID       string           `json:"event_id"`
	SagaID        string           `json:"saga_id"`
	OrderID       string           `json:"order_id"`
	EventType     PaymentEventType `json:"event_type"`
	TransactionID string           `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Reason        string           `json:"reason,omitempty"`
}
