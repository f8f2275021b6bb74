package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
)

// CreateOrder validates the command, persists a new PENDING order and
// publishes ORDER_CREATED to start the saga.
func (s *Orchestrator) CreateOrder(ctx context.Context, cmd *model.CreateOrderCommand) (*model.Order, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		items = append(items, model.NewOrderItem(it.ProductID, it.ProductName, it.Quantity, it.UnitPrice))
	}

	order := model.NewOrder(cmd.CustomerID, items)

	if err := s.saveAndPublish(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.logger.Info("order created",
		slog.String("id", order.ID),
		slog.String("saga_id", order.SagaID),
		slog.String("total_amount", order.TotalAmount.String()))

	return order, nil
}

func validateCreate(cmd *model.CreateOrderCommand) error {
	if cmd.CustomerID == "" {
		return &model.ValidationError{Field: "customer_id", Msg: "must not be empty"}
	}
	if len(cmd.Items) == 0 {
		return &model.ValidationError{Field: "items", Msg: "order must contain at least one item"}
	}
	for _, it := range cmd.Items {
		if it.ProductID == "" {
			return &model.ValidationError{Field: "product_id", Msg: "must not be empty"}
		}
		if it.Quantity <= 0 {
			return &model.ValidationError{Field: "quantity", Msg: "must be positive"}
		}
		if !it.UnitPrice.IsPositive() {
			return &model.ValidationError{Field: "unit_price", Msg: "must be positive"}
		}
	}
	return nil
}
