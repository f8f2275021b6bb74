package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// InventorySaga is the slice of the orchestrator the inventory handler drives.
type InventorySaga interface {
	HandleInventoryReserved(ctx context.Context, sagaID string) (*model.Order, error)
	HandleInventoryFailed(ctx context.Context, sagaID, reason string) (*model.Order, error)
}

type InventoryHandler struct {
	saga   InventorySaga
	logger *slog.Logger
}

func NewInventoryHandler(saga InventorySaga, l *slog.Logger) *InventoryHandler {
	return &InventoryHandler{saga: saga, logger: l}
}

// Handle processes one inventory event. A nil return acknowledges the
// message; an orchestrator error propagates so the transport redelivers.
// Unknown types and malformed payloads are acknowledged — a retry cannot
// fix them.
func (h *InventoryHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var event model.InventoryEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("malformed inventory event dropped",
			slog.Int64("offset", int64(msg.TopicPartition.Offset)),
			slog.Any("error", err))
		return nil
	}

	h.logger.Info("inventory event received",
		slog.String("event_type", string(event.EventType)),
		slog.String("saga_id", event.SagaID))

	switch event.EventType {
	case model.InventoryReserved:
		_, err := h.saga.HandleInventoryReserved(ctx, event.SagaID)
		return err

	case model.InventoryReservationFailed:
		_, err := h.saga.HandleInventoryFailed(ctx, event.SagaID, event.Reason)
		return err

	case model.InventoryReleased:
		// Confirms the reservation was rolled back; observational only,
		// no local transition.
		h.logger.Info("inventory released", slog.String("saga_id", event.SagaID))
		return nil

	default:
		h.logger.Warn("unknown inventory event type dropped",
			slog.String("event_type", string(event.EventType)),
			slog.String("saga_id", event.SagaID))
		return nil
	}
}
