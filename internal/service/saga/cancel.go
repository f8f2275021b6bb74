package saga

import (
	"context"
	"log/slog"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// CancelOrder cancels a not-yet-completed order and publishes
// ORDER_CANCELLED. Cancelling a COMPLETED order is a state conflict, not an
// invalid transition; cancelling an already cancelled order is a no-op.
func (s *Orchestrator) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	o, err := s.mutateAndPublish(ctx, s.byID(orderID), func(o *model.Order) (bool, error) {
		if o.Status == model.OrderCompleted {
			return false, model.ErrOrderCompleted
		}
		if o.Status == model.OrderCancelled {
			return false, nil
		}
		if err := o.TransitionTo(model.OrderCancelled); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", slog.String("id", o.ID))
	return o, nil
}

// UpdateOrderStatus applies one direct transition not tied to a saga event
// and publishes the event matching the new status. Unlike the saga-event
// operations this is a deliberate client command, so it gets no duplicate
// tolerance: a same-status update is an invalid transition like any other
// move the table forbids.
func (s *Orchestrator) UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus) (*model.Order, error) {
	if !newStatus.Valid() {
		return nil, &model.ValidationError{Field: "status", Msg: "unknown order status"}
	}

	return s.mutateAndPublish(ctx, s.byID(orderID), func(o *model.Order) (bool, error) {
		if err := o.TransitionTo(newStatus); err != nil {
			return false, err
		}
		return true, nil
	})
}
