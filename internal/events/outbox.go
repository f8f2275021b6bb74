package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// OutboxStore persists pending events; storage/pg.Storage satisfies it.
type OutboxStore interface {
	InsertOutboxMsg(ctx context.Context, msg *model.OutboxMessage) error
}

// OutboxPublisher trades immediate delivery for durability: the event is
// written to the outbox table and the relay ships it to Kafka later, still
// keyed by aggregate id.
type OutboxPublisher struct {
	store  OutboxStore
	topic  string
	logger *slog.Logger
}

func NewOutboxPublisher(store OutboxStore, topic string, l *slog.Logger) *OutboxPublisher {
	return &OutboxPublisher{store: store, topic: topic, logger: l}
}

func (p *OutboxPublisher) Publish(ctx context.Context, event *model.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := &model.OutboxMessage{
		Topic:     p.topic,
		Key:       event.AggregateID,
		EventType: string(event.EventType),
		Payload:   payload,
		Headers:   map[string]string{"saga-id": event.SagaID},
	}

	if err = p.store.InsertOutboxMsg(ctx, msg); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}

	p.logger.Debug("order event staged in outbox",
		slog.String("event_type", string(event.EventType)),
		slog.String("aggregate_id", event.AggregateID))
	return nil
}
