package saga

import (
	"context"
	"log/slog"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// HandlePaymentCompleted finishes the saga: PAYMENT_COMPLETED then COMPLETED
// in one save, publishing ORDER_COMPLETED. A redelivered completion event
// finds the order already COMPLETED and is a no-op.
func (s *Orchestrator) HandlePaymentCompleted(ctx context.Context, sagaID string) (*model.Order, error) {
	o, err := s.mutateAndPublish(ctx, s.bySagaID(sagaID), func(o *model.Order) (bool, error) {
		if o.Status == model.OrderCompleted {
			return false, nil
		}
		if err := o.TransitionTo(model.OrderPaymentCompleted); err != nil {
			return false, err
		}
		if err := o.TransitionTo(model.OrderCompleted); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order completed", slog.String("id", o.ID), slog.String("saga_id", sagaID))
	return o, nil
}

// HandlePaymentFailed starts compensation: PAYMENT_FAILED, reason recorded,
// then COMPENSATING. ORDER_COMPENSATION_STARTED signals the inventory
// service to release its reservation; CANCELLED follows once it confirms.
func (s *Orchestrator) HandlePaymentFailed(ctx context.Context, sagaID, reason string) (*model.Order, error) {
	o, err := s.mutateAndPublish(ctx, s.bySagaID(sagaID), func(o *model.Order) (bool, error) {
		if o.Status == model.OrderCompensating || o.Status == model.OrderCancelled {
			return false, nil
		}
		if err := o.TransitionTo(model.OrderPaymentFailed); err != nil {
			return false, err
		}
		o.MarkFailed(reason)
		if err := o.TransitionTo(model.OrderCompensating); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("payment failed, compensation started",
		slog.String("id", o.ID), slog.String("saga_id", sagaID), slog.String("reason", reason))
	return o, nil
}
