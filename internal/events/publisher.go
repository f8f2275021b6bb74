package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// AsyncProducer is the slice of pkg/kafka.Producer the publisher needs.
type AsyncProducer interface {
	PublishAsync(topic string, key, val []byte, headers []kafka.Header) error
}

// KafkaPublisher publishes order events keyed by aggregate id, so all
// events of one order land in the same partition. Publishing is initiated
// before Publish returns; delivery reports are observed and logged by the
// producer, never by the caller.
type KafkaPublisher struct {
	producer AsyncProducer
	topic    string
	logger   *slog.Logger
}

func NewKafkaPublisher(p AsyncProducer, topic string, l *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, logger: l}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *model.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "event-type", Value: []byte(event.EventType)},
		{Key: "saga-id", Value: []byte(event.SagaID)},
	}

	if err = p.producer.PublishAsync(p.topic, []byte(event.AggregateID), payload, headers); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}

	p.logger.Debug("order event enqueued",
		slog.String("event_type", string(event.EventType)),
		slog.String("aggregate_id", event.AggregateID))
	return nil
}
