package saga

import (
	"context"
	"log/slog"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// HandleInventoryReserved advances the saga past the reservation step:
// INVENTORY_RESERVED then PAYMENT_PROCESSING in one save, publishing
// ORDER_PAYMENT_PROCESSING to hand off to the payment service. A redelivered
// reservation event finds the order already in PAYMENT_PROCESSING and is a
// no-op.
func (s *Orchestrator) HandleInventoryReserved(ctx context.Context, sagaID string) (*model.Order, error) {
	o, err := s.mutateAndPublish(ctx, s.bySagaID(sagaID), func(o *model.Order) (bool, error) {
		if o.Status == model.OrderPaymentProcessing {
			return false, nil
		}
		if err := o.TransitionTo(model.OrderInventoryReserved); err != nil {
			return false, err
		}
		if err := o.TransitionTo(model.OrderPaymentProcessing); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory reserved, awaiting payment",
		slog.String("id", o.ID), slog.String("saga_id", sagaID))
	return o, nil
}

// HandleInventoryFailed ends the saga before anything was reserved
// downstream: INVENTORY_FAILED, reason recorded, then straight to CANCELLED.
// No compensation is needed at this stage.
func (s *Orchestrator) HandleInventoryFailed(ctx context.Context, sagaID, reason string) (*model.Order, error) {
	o, err := s.mutateAndPublish(ctx, s.bySagaID(sagaID), func(o *model.Order) (bool, error) {
		if o.Status == model.OrderCancelled {
			return false, nil
		}
		if err := o.TransitionTo(model.OrderInventoryFailed); err != nil {
			return false, err
		}
		o.MarkFailed(reason)
		if err := o.TransitionTo(model.OrderCancelled); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("inventory reservation failed, order cancelled",
		slog.String("id", o.ID), slog.String("saga_id", sagaID), slog.String("reason", reason))
	return o, nil
}
