package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// maxSaveAttempts bounds the load-mutate-save retry on version conflicts.
const maxSaveAttempts = 3

// OrderStore is the persistence contract the orchestrator drives. Save must
// fail with model.ErrConcurrencyConflict when the order carries a stale
// version; lookups must fail with model.ErrOrderNotFound or
// model.ErrSagaNotFound.
type OrderStore interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindBySagaID(ctx context.Context, sagaID string) (*model.Order, error)
	Save(ctx context.Context, o *model.Order) error
}

// Publisher delivers an order event keyed by its aggregate id. Publishing
// must be initiated before the call returns; delivery failures are logged by
// the implementation and never roll back the saved state.
type Publisher interface {
	Publish(ctx context.Context, event *model.OrderEvent) error
}

// TxRunner runs fn inside one storage transaction; storage/pg.Storage
// satisfies it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Orchestrator struct {
	logger *slog.Logger
	store  OrderStore
	bus    Publisher
	tx     TxRunner
}

func NewOrchestrator(l *slog.Logger, store OrderStore, bus Publisher) *Orchestrator {
	return &Orchestrator{
		logger: l,
		store:  store,
		bus:    bus,
	}
}

// WithTx makes every save-and-publish unit run inside one transaction, for
// publishers that stage events in storage: the state change and the staged
// event commit together or not at all.
func (s *Orchestrator) WithTx(tx TxRunner) *Orchestrator {
	s.tx = tx
	return s
}

type loader func(ctx context.Context) (*model.Order, error)

func (s *Orchestrator) byID(id string) loader {
	return func(ctx context.Context) (*model.Order, error) {
		return s.store.FindByID(ctx, id)
	}
}

func (s *Orchestrator) bySagaID(sagaID string) loader {
	return func(ctx context.Context) (*model.Order, error) {
		return s.store.FindBySagaID(ctx, sagaID)
	}
}

// mutateAndPublish runs one load-mutate-save-publish unit. The whole cycle
// restarts from a fresh load when the save hits a version conflict, up to
// maxSaveAttempts. mutate returns false to skip save and publish, which is
// how duplicate deliveries become no-op successes.
func (s *Orchestrator) mutateAndPublish(ctx context.Context, load loader, mutate func(o *model.Order) (bool, error)) (*model.Order, error) {
	var conflict error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		o, err := load(ctx)
		if err != nil {
			return nil, err
		}

		apply, err := mutate(o)
		if err != nil {
			return nil, err
		}
		if !apply {
			s.logger.Debug("duplicate delivery ignored",
				slog.String("id", o.ID), slog.String("status", string(o.Status)))
			return o, nil
		}

		if err = s.saveAndPublish(ctx, o); err != nil {
			if errors.Is(err, model.ErrConcurrencyConflict) {
				conflict = err
				continue
			}
			return nil, fmt.Errorf("save order: %w", err)
		}
		return o, nil
	}
	return nil, fmt.Errorf("save order after %d attempts: %w", maxSaveAttempts, conflict)
}

// saveAndPublish persists the order and hands the matching event to the bus.
// With a TxRunner both run in one transaction and a staging failure aborts
// the save; without one the event goes out after the save commits, and a
// publish failure is logged and swallowed because the state change is
// already durable.
func (s *Orchestrator) saveAndPublish(ctx context.Context, o *model.Order) error {
	if s.tx == nil {
		if err := s.store.Save(ctx, o); err != nil {
			return err
		}
		s.publish(ctx, o)
		return nil
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Save(ctx, o); err != nil {
			return err
		}
		event := newOrderEvent(o, statusEventTypes[o.Status])
		if err := s.bus.Publish(ctx, event); err != nil {
			return fmt.Errorf("stage %s: %w", event.EventType, err)
		}
		return nil
	})
}

// publish emits the event matching the order's current status. The state
// change is already durable here, so a publish failure is logged and
// swallowed; downstream consumers reconcile gaps.
func (s *Orchestrator) publish(ctx context.Context, o *model.Order) {
	event := newOrderEvent(o, statusEventTypes[o.Status])
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Error("publish order event failed",
			slog.String("id", o.ID),
			slog.String("event_type", string(event.EventType)),
			slog.Any("error", err))
	}
}
