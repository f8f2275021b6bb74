package saga

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
	"github.com/MartonCsizmazia/order-processing-system/internal/storage/memory"
)

type recordingBus struct {
	events []*model.OrderEvent
}

func (b *recordingBus) Publish(_ context.Context, event *model.OrderEvent) error {
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) types() []model.OrderEventType {
	out := make([]model.OrderEventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType)
	}
	return out
}

type failingBus struct{}

func (failingBus) Publish(context.Context, *model.OrderEvent) error {
	return errors.New("staging failed")
}

// passthroughTx records that the save-and-publish unit ran under it.
type passthroughTx struct {
	calls int
}

func (r *passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

// conflictOnceStore fails the first non-insert save with a version conflict,
// as if a concurrent writer had won the race.
type conflictOnceStore struct {
	*memory.Store
	conflicted bool
}

func (s *conflictOnceStore) Save(ctx context.Context, o *model.Order) error {
	if o.Version > 0 && !s.conflicted {
		s.conflicted = true
		return model.ErrConcurrencyConflict
	}
	return s.Store.Save(ctx, o)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memory.Store, *recordingBus) {
	t.Helper()
	store := memory.NewStore()
	bus := &recordingBus{}
	return NewOrchestrator(discardLogger(), store, bus), store, bus
}

func validCommand() *model.CreateOrderCommand {
	return &model.CreateOrderCommand{
		CustomerID: "cust-1",
		Items: []model.CreateOrderItem{
			{ProductID: "p-1", ProductName: "keyboard", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	s, store, bus := newTestOrchestrator(t)

	order, err := s.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("39.98")))
	assert.Equal(t, []model.OrderEventType{model.EventOrderCreated}, bus.types())

	stored, err := store.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Version)
}

func TestCreateOrder_Validation(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)

	tests := []struct {
		name  string
		cmd   *model.CreateOrderCommand
		field string
	}{
		{
			name:  "empty customer",
			cmd:   &model.CreateOrderCommand{Items: validCommand().Items},
			field: "customer_id",
		},
		{
			name:  "no items",
			cmd:   &model.CreateOrderCommand{CustomerID: "cust-1"},
			field: "items",
		},
		{
			name: "zero quantity",
			cmd: &model.CreateOrderCommand{CustomerID: "cust-1", Items: []model.CreateOrderItem{
				{ProductID: "p-1", Quantity: 0, UnitPrice: decimal.NewFromInt(1)},
			}},
			field: "quantity",
		},
		{
			name: "non-positive price",
			cmd: &model.CreateOrderCommand{CustomerID: "cust-1", Items: []model.CreateOrderItem{
				{ProductID: "p-1", Quantity: 1, UnitPrice: decimal.Zero},
			}},
			field: "unit_price",
		},
		{
			name: "empty product id",
			cmd: &model.CreateOrderCommand{CustomerID: "cust-1", Items: []model.CreateOrderItem{
				{Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
			}},
			field: "product_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateOrder(context.Background(), tt.cmd)
			var vErr *model.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	assert.Empty(t, bus.events, "failed validation must not publish")
}

func TestSaga_HappyPath(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	order, err = s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentProcessing, order.Status)

	order, err = s.HandlePaymentCompleted(ctx, order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, order.Status)

	assert.Equal(t, []model.OrderEventType{
		model.EventOrderCreated,
		model.EventOrderPaymentProcessing,
		model.EventOrderCompleted,
	}, bus.types())

	for _, e := range bus.events {
		assert.Equal(t, order.ID, e.AggregateID)
		assert.Equal(t, order.SagaID, e.SagaID)
	}
}

func TestSaga_InventoryFailure(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	order, err = s.HandleInventoryFailed(ctx, order.SagaID, "insufficient stock")
	require.NoError(t, err)

	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.Equal(t, "insufficient stock", order.FailureReason)
	assert.Equal(t, []model.OrderEventType{
		model.EventOrderCreated,
		model.EventOrderCancelled,
	}, bus.types())
	assert.Equal(t, "insufficient stock", bus.events[1].FailureReason)
}

func TestSaga_PaymentFailureStartsCompensation(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	_, err = s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)

	order, err = s.HandlePaymentFailed(ctx, order.SagaID, "card declined")
	require.NoError(t, err)

	assert.Equal(t, model.OrderCompensating, order.Status)
	assert.Equal(t, "card declined", order.FailureReason)
	assert.Equal(t, model.EventOrderCompensationStarted, bus.events[len(bus.events)-1].EventType)

	// inventory confirms the release, operator (or handler) finishes the saga
	order, err = s.UpdateOrderStatus(ctx, order.ID, model.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.Equal(t, model.EventOrderCancelled, bus.events[len(bus.events)-1].EventType)
}

func TestCancelOrder(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	order, err = s.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)

	published := len(bus.events)

	// cancelling again is a no-op, no extra event
	again, err := s.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, again.Status)
	assert.Len(t, bus.events, published)
}

func TestCancelOrder_CompletedIsStateConflict(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)
	_, err = s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)
	_, err = s.HandlePaymentCompleted(ctx, order.SagaID)
	require.NoError(t, err)

	published := len(bus.events)

	_, err = s.CancelOrder(ctx, order.ID)
	require.ErrorIs(t, err, model.ErrOrderCompleted)

	var invalid *model.InvalidTransitionError
	assert.False(t, errors.As(err, &invalid),
		"completed cancel is a state conflict, not an invalid transition")
	assert.Len(t, bus.events, published, "failed cancel must not publish")
}

func TestSaga_DuplicateDeliveriesAreNoOps(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	_, err = s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)
	published := len(bus.events)

	// redelivery converges instead of failing
	dup, err := s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentProcessing, dup.Status)
	assert.Len(t, bus.events, published)

	_, err = s.HandlePaymentCompleted(ctx, order.SagaID)
	require.NoError(t, err)
	published = len(bus.events)

	dup, err = s.HandlePaymentCompleted(ctx, order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, dup.Status)
	assert.Len(t, bus.events, published)
}

func TestSaga_RetriesOnVersionConflict(t *testing.T) {
	store := &conflictOnceStore{Store: memory.NewStore()}
	bus := &recordingBus{}
	s := NewOrchestrator(discardLogger(), store, bus)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	order, err = s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentProcessing, order.Status)
	assert.True(t, store.conflicted, "first save attempt should have conflicted")
}

func TestSaga_UnknownSagaID(t *testing.T) {
	s, _, _ := newTestOrchestrator(t)

	_, err := s.HandleInventoryReserved(context.Background(), "no-such-saga")
	assert.ErrorIs(t, err, model.ErrSagaNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	s, _, bus := newTestOrchestrator(t)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	_, err = s.UpdateOrderStatus(ctx, order.ID, model.OrderStatus("SHIPPED"))
	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = s.UpdateOrderStatus(ctx, order.ID, model.OrderCompleted)
	var invalid *model.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	published := len(bus.events)
	_, err = s.UpdateOrderStatus(ctx, order.ID, model.OrderPending)
	require.ErrorAs(t, err, &invalid,
		"a same-status client command is rejected, not tolerated like a redelivery")
	assert.Len(t, bus.events, published)

	updated, err := s.UpdateOrderStatus(ctx, order.ID, model.OrderInventoryReserved)
	require.NoError(t, err)
	assert.Equal(t, model.OrderInventoryReserved, updated.Status)
	assert.Equal(t, model.EventOrderInventoryReserved, bus.events[len(bus.events)-1].EventType)
}

func TestSaga_DirectModeSwallowsPublishFailure(t *testing.T) {
	s := NewOrchestrator(discardLogger(), memory.NewStore(), failingBus{})

	order, err := s.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err, "the state change is durable, a direct publish failure is logged only")
	assert.Equal(t, model.OrderPending, order.Status)
}

func TestSaga_TxModeComposesSaveAndStaging(t *testing.T) {
	tx := &passthroughTx{}
	bus := &recordingBus{}
	s := NewOrchestrator(discardLogger(), memory.NewStore(), bus).WithTx(tx)
	ctx := context.Background()

	order, err := s.CreateOrder(ctx, validCommand())
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)

	_, err = s.HandleInventoryReserved(ctx, order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, 2, tx.calls)
	assert.Equal(t, []model.OrderEventType{
		model.EventOrderCreated,
		model.EventOrderPaymentProcessing,
	}, bus.types())
}

func TestSaga_TxModeStagingFailureFailsOperation(t *testing.T) {
	tx := &passthroughTx{}
	s := NewOrchestrator(discardLogger(), memory.NewStore(), failingBus{}).WithTx(tx)

	_, err := s.CreateOrder(context.Background(), validCommand())
	require.Error(t, err,
		"a staging failure aborts the transaction instead of leaving a durable transition with no staged event")
	assert.Equal(t, 1, tx.calls)
}
