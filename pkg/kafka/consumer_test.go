package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConsumer(h Handler) *Consumer {
	return &Consumer{
		h:            h,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		bufSize:      8,
		retryBackoff: time.Millisecond,
		workers:      make(map[topicPartition]*partitionWorker),
		commitCh:     make(chan kafka.TopicPartition, 64),
	}
}

func msgAt(topic string, offset kafka.Offset) *kafka.Message {
	return &kafka.Message{TopicPartition: kafka.TopicPartition{
		Topic:     &topic,
		Partition: 0,
		Offset:    offset,
	}}
}

func runWorker(c *Consumer, msgs ...*kafka.Message) []kafka.TopicPartition {
	pw := &partitionWorker{
		ch:   make(chan *kafka.Message, len(msgs)),
		done: make(chan struct{}),
	}
	for _, m := range msgs {
		pw.ch <- m
	}
	close(pw.ch)

	c.wg.Add(1)
	c.worker(context.Background(), topicPartition{topic: "orders", partition: 0}, pw)
	<-pw.done

	var committed []kafka.TopicPartition
	for {
		select {
		case tp := <-c.commitCh:
			committed = append(committed, tp)
		default:
			return committed
		}
	}
}

func TestWorker_CommitsProcessedOffsets(t *testing.T) {
	c := testConsumer(func(context.Context, *kafka.Message) error { return nil })

	committed := runWorker(c, msgAt("orders", 5), msgAt("orders", 6))

	require.Len(t, committed, 2)
	assert.Equal(t, kafka.Offset(6), committed[0].Offset)
	assert.Equal(t, kafka.Offset(7), committed[1].Offset)
}

// A later commit would implicitly acknowledge every earlier offset, so once
// a message fails, nothing behind it on the partition may be committed.
func TestWorker_HaltsBehindFailedMessage(t *testing.T) {
	c := testConsumer(func(_ context.Context, msg *kafka.Message) error {
		if msg.TopicPartition.Offset == 5 {
			return errors.New("version conflict")
		}
		return nil
	})

	committed := runWorker(c, msgAt("orders", 5), msgAt("orders", 6))

	assert.Empty(t, committed,
		"commit watermark must not advance past an unacknowledged offset")
}

func TestWorker_CommitsUpToFailedMessage(t *testing.T) {
	c := testConsumer(func(_ context.Context, msg *kafka.Message) error {
		if msg.TopicPartition.Offset == 6 {
			return errors.New("version conflict")
		}
		return nil
	})

	committed := runWorker(c, msgAt("orders", 5), msgAt("orders", 6), msgAt("orders", 7))

	require.Len(t, committed, 1)
	assert.Equal(t, kafka.Offset(6), committed[0].Offset,
		"offsets before the failure stay acknowledged")
}
