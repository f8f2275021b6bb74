package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

const orderColumns = `id, customer_id, status, items, total_amount,
              created_at, updated_at, version, saga_id, COALESCE(failure_reason, '')`

// Save inserts a new order (version 0 in memory, 1 on disk) or updates an
// existing one guarded by a version check. A stale version returns
// model.ErrConcurrencyConflict; on success the in-memory version is bumped
// to match the stored row.
func (s *Storage) Save(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	if o.Version == 0 {
		query := `INSERT INTO orders (id, customer_id, status, items, total_amount,
                      created_at, updated_at, version, saga_id, failure_reason)
                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))`

		if _, err = s.conn(ctx).Exec(ctx, query,
			o.ID, o.CustomerID, o.Status, items, o.TotalAmount,
			o.CreatedAt, o.UpdatedAt, int64(1), o.SagaID, o.FailureReason); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		o.Version = 1
		return nil
	}

	query := `UPDATE orders
              SET status = $2,
                  items = $3,
                  total_amount = $4,
                  updated_at = $5,
                  failure_reason = NULLIF($6, ''),
                  version = version + 1
              WHERE id = $1 AND version = $7`

	tag, err := s.conn(ctx).Exec(ctx, query,
		o.ID, o.Status, items, o.TotalAmount, o.UpdatedAt, o.FailureReason, o.Version)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := s.FindByID(ctx, o.ID); errors.Is(findErr, model.ErrOrderNotFound) {
			return model.ErrOrderNotFound
		}
		return model.ErrConcurrencyConflict
	}

	o.Version++
	return nil
}

func (s *Storage) FindByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(s.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order by id: %w", err)
	}
	return o, nil
}

func (s *Storage) FindBySagaID(ctx context.Context, sagaID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE saga_id = $1`

	o, err := scanOrder(s.conn(ctx).QueryRow(ctx, query, sagaID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSagaNotFound
		}
		return nil, fmt.Errorf("find order by saga id: %w", err)
	}
	return o, nil
}

func (s *Storage) FindByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at`

	return s.queryOrders(ctx, query, status)
}

func (s *Storage) FindByCustomerID(ctx context.Context, customerID string) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	return s.queryOrders(ctx, query, customerID)
}

// FindStale lists orders stuck in status since before threshold; used by
// reconciliation tooling to spot sagas whose events never arrived.
func (s *Storage) FindStale(ctx context.Context, status model.OrderStatus, threshold time.Time) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at`

	return s.queryOrders(ctx, query, status, threshold)
}

func (s *Storage) queryOrders(ctx context.Context, query string, args ...any) ([]*model.Order, error) {
	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var itemsJSON []byte

	if err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &itemsJSON, &o.TotalAmount,
		&o.CreatedAt, &o.UpdatedAt, &o.Version, &o.SagaID, &o.FailureReason); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return o, nil
}
