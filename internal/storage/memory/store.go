// Package memory provides an in-memory order store with the same
// optimistic-concurrency contract as storage/pg. It backs tests and
// local runs without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

type Store struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
	bySaga map[string]string
}

func NewStore() *Store {
	return &Store{
		orders: make(map[string]*model.Order),
		bySaga: make(map[string]string),
	}
}

// Save follows the same versioning scheme as the Postgres store: a new
// order (version 0) is stored as version 1, an update must carry the
// current stored version or it fails with model.ErrConcurrencyConflict.
func (s *Store) Save(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if o.Version == 0 {
		if ok {
			// Inserting over an existing row is a stale version 0.
			return model.ErrConcurrencyConflict
		}
		cp := clone(o)
		cp.Version = 1
		s.orders[o.ID] = cp
		s.bySaga[o.SagaID] = o.ID
		o.Version = 1
		return nil
	}

	if !ok {
		return model.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return model.ErrConcurrencyConflict
	}

	cp := clone(o)
	cp.Version = o.Version + 1
	s.orders[o.ID] = cp
	o.Version = cp.Version
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return clone(o), nil
}

func (s *Store) FindBySagaID(_ context.Context, sagaID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySaga[sagaID]
	if !ok {
		return nil, model.ErrSagaNotFound
	}
	return clone(s.orders[id]), nil
}

func (s *Store) FindByStatus(_ context.Context, status model.OrderStatus) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Order
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, clone(o))
		}
	}
	return out, nil
}

func (s *Store) FindByCustomerID(_ context.Context, customerID string) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, clone(o))
		}
	}
	return out, nil
}

func (s *Store) FindStale(_ context.Context, status model.OrderStatus, threshold time.Time) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Order
	for _, o := range s.orders {
		if o.Status == status && o.CreatedAt.Before(threshold) {
			out = append(out, clone(o))
		}
	}
	return out, nil
}

func clone(o *model.Order) *model.Order {
	cp := *o
	cp.Items = make([]model.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
