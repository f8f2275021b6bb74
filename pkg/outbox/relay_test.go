package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

type fakeRepo struct {
	batch     []*model.OutboxMessage
	published []int64
	retried   []int64
}

func (f *fakeRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetBatch(_ context.Context, _ int) ([]*model.OutboxMessage, error) {
	return f.batch, nil
}

func (f *fakeRepo) UpdateRetryCount(_ context.Context, id int64, _ string) error {
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeRepo) MarkPublished(_ context.Context, id int64) error {
	f.published = append(f.published, id)
	return nil
}

type fakePublisher struct {
	sent    []string
	headers map[string][]kafka.Header
	failKey string
}

func (f *fakePublisher) Publish(_ context.Context, _ string, key, _ []byte, headers []kafka.Header) error {
	if string(key) == f.failKey {
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, string(key))
	if f.headers == nil {
		f.headers = make(map[string][]kafka.Header)
	}
	f.headers[string(key)] = headers
	return nil
}

func TestRelay_ProcessBatch(t *testing.T) {
	repo := &fakeRepo{batch: []*model.OutboxMessage{
		{ID: 1, Topic: "order-events", Key: "order-1", EventType: "ORDER_CREATED",
			Payload: []byte(`{}`), Headers: map[string]string{"saga-id": "saga-1"}},
		{ID: 2, Topic: "order-events", Key: "order-2", EventType: "ORDER_CANCELLED",
			Payload: []byte(`{}`)},
	}}
	pub := &fakePublisher{}
	r := NewRelay(repo, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), 10, 0)

	processed, err := r.processBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, processed)
	assert.Equal(t, []string{"order-1", "order-2"}, pub.sent)
	assert.Equal(t, []int64{1, 2}, repo.published)
	assert.Empty(t, repo.retried)

	var eventType string
	for _, h := range pub.headers["order-1"] {
		if h.Key == "event-type" {
			eventType = string(h.Value)
		}
	}
	assert.Equal(t, "ORDER_CREATED", eventType)
}

func TestRelay_PublishFailureBumpsRetryCount(t *testing.T) {
	repo := &fakeRepo{batch: []*model.OutboxMessage{
		{ID: 1, Topic: "order-events", Key: "order-1", Payload: []byte(`{}`)},
		{ID: 2, Topic: "order-events", Key: "order-2", Payload: []byte(`{}`)},
	}}
	pub := &fakePublisher{failKey: "order-1"}
	r := NewRelay(repo, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), 10, 0)

	_, err := r.processBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, repo.retried, "failed message stays pending")
	assert.Equal(t, []int64{2}, repo.published, "one failure does not block the batch")
}
