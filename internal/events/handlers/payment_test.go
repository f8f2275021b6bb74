package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

type fakePaymentSaga struct {
	completed []string
	failed    []string
	err       error
}

func (f *fakePaymentSaga) HandlePaymentCompleted(_ context.Context, sagaID string) (*model.Order, error) {
	f.completed = append(f.completed, sagaID)
	return &model.Order{}, f.err
}

func (f *fakePaymentSaga) HandlePaymentFailed(_ context.Context, sagaID, reason string) (*model.Order, error) {
	f.failed = append(f.failed, sagaID+":"+reason)
	return &model.Order{}, f.err
}

func paymentMsg(t *testing.T, event model.PaymentEvent) *kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return &kafka.Message{Value: payload}
}

func TestPaymentHandler_Completed(t *testing.T) {
	saga := &fakePaymentSaga{}
	h := NewPaymentHandler(saga, testLogger())

	err := h.Handle(context.Background(), paymentMsg(t, model.PaymentEvent{
		SagaID:        "saga-1",
		EventType:     model.PaymentCompleted,
		TransactionID: "tx-9",
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"saga-1"}, saga.completed)
}

func TestPaymentHandler_Failed(t *testing.T) {
	saga := &fakePaymentSaga{}
	h := NewPaymentHandler(saga, testLogger())

	err := h.Handle(context.Background(), paymentMsg(t, model.PaymentEvent{
		SagaID:    "saga-1",
		EventType: model.PaymentFailed,
		Reason:    "card declined",
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"saga-1:card declined"}, saga.failed)
}

func TestPaymentHandler_ErrorPropagatesForRedelivery(t *testing.T) {
	saga := &fakePaymentSaga{err: errors.New("version conflict")}
	h := NewPaymentHandler(saga, testLogger())

	err := h.Handle(context.Background(), paymentMsg(t, model.PaymentEvent{
		SagaID:    "saga-1",
		EventType: model.PaymentCompleted,
	}))

	assert.Error(t, err)
}

func TestPaymentHandler_RefundedIsObservational(t *testing.T) {
	saga := &fakePaymentSaga{}
	h := NewPaymentHandler(saga, testLogger())

	err := h.Handle(context.Background(), paymentMsg(t, model.PaymentEvent{
		SagaID:    "saga-1",
		EventType: model.PaymentRefunded,
	}))

	require.NoError(t, err)
	assert.Empty(t, saga.completed)
	assert.Empty(t, saga.failed)
}

func TestPaymentHandler_UnknownTypeAcked(t *testing.T) {
	saga := &fakePaymentSaga{}
	h := NewPaymentHandler(saga, testLogger())

	err := h.Handle(context.Background(), paymentMsg(t, model.PaymentEvent{
		SagaID:    "saga-1",
		EventType: "PAYMENT_DISPUTED",
	}))

	assert.NoError(t, err)
	assert.Empty(t, saga.completed)
	assert.Empty(t, saga.failed)
}

func TestPaymentHandler_MalformedPayloadAcked(t *testing.T) {
	saga := &fakePaymentSaga{}
	h := NewPaymentHandler(saga, testLogger())

	err := h.Handle(context.Background(), &kafka.Message{Value: []byte("not json at all")})

	assert.NoError(t, err)
	assert.Empty(t, saga.completed)
}
