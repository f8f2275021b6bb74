package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// PaymentSaga is the slice of the orchestrator the payment handler drives.
type PaymentSaga interface {
	HandlePaymentCompleted(ctx context.Context, sagaID string) (*model.Order, error)
	HandlePaymentFailed(ctx context.Context, sagaID, reason string) (*model.Order, error)
}

type PaymentHandler struct {
	saga   PaymentSaga
	logger *slog.Logger
}

func NewPaymentHandler(saga PaymentSaga, l *slog.Logger) *PaymentHandler {
	return &PaymentHandler{saga: saga, logger: l}
}

// Handle processes one payment event with the same acknowledge/retry
// contract as the inventory handler.
func (h *PaymentHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var event model.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("malformed payment event dropped",
			slog.Int64("offset", int64(msg.TopicPartition.Offset)),
			slog.Any("error", err))
		return nil
	}

	h.logger.Info("payment event received",
		slog.String("event_type", string(event.EventType)),
		slog.String("saga_id", event.SagaID),
		slog.String("transaction_id", event.TransactionID))

	switch event.EventType {
	case model.PaymentCompleted:
		_, err := h.saga.HandlePaymentCompleted(ctx, event.SagaID)
		return err

	case model.PaymentFailed:
		_, err := h.saga.HandlePaymentFailed(ctx, event.SagaID, event.Reason)
		return err

	case model.PaymentRefunded:
		// Confirms the payment was rolled back during compensation;
		// observational only, no local transition.
		h.logger.Info("payment refunded", slog.String("saga_id", event.SagaID))
		return nil

	default:
		h.logger.Warn("unknown payment event type dropped",
			slog.String("event_type", string(event.EventType)),
			slog.String("saga_id", event.SagaID))
		return nil
	}
}
