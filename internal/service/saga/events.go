package saga

import (
	"time"

	"github.com/google/uuid"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// statusEventTypes maps every order status to the event announcing it.
// Exhaustive over model.OrderStatus; a status without an entry is a bug.
var statusEventTypes = map[model.OrderStatus]model.OrderEventType{
	model.OrderPending:           model.EventOrderCreated,
	model.OrderInventoryReserved: model.EventOrderInventoryReserved,
	model.OrderInventoryFailed:   model.EventOrderInventoryFailed,
	model.OrderPaymentProcessing: model.EventOrderPaymentProcessing,
	model.OrderPaymentCompleted:  model.EventOrderPaymentCompleted,
	model.OrderPaymentFailed:     model.EventOrderPaymentFailed,
	model.OrderCompleted:         model.EventOrderCompleted,
	model.OrderCancelled:         model.EventOrderCancelled,
	model.OrderCompensating:      model.EventOrderCompensationStarted,
}

// newOrderEvent snapshots the aggregate into its outbound event.
func newOrderEvent(o *model.Order, eventType model.OrderEventType) *model.OrderEvent {
	return &model.OrderEvent{
		EventID:       uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		AggregateID:   o.ID,
		EventType:     eventType,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		Items:         append([]model.OrderItem(nil), o.Items...),
		SagaID:        o.SagaID,
		FailureReason: o.FailureReason,
	}
}
