package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/lib/api/decode"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/lib/api/response"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, cmd *model.CreateOrderCommand) (*model.Order, error)
}

type createRequest struct {
	CustomerID string              `json:"customer_id"`
	Items      []createRequestItem `json:"items"`
}

type createRequestItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type createResponse struct {
	OrderID string            `json:"order_id"`
	SagaID  string            `json:"saga_id"`
	Status  model.OrderStatus `json:"status"`
	Message string            `json:"message"`
}

func Create(service OrderCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest

		if err := decode.JSON(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		cmd := &model.CreateOrderCommand{CustomerID: req.CustomerID}
		for _, it := range req.Items {
			cmd.Items = append(cmd.Items, model.CreateOrderItem{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			})
		}

		order, err := service.CreateOrder(r.Context(), cmd)
		if err != nil {
			respondError(w, err)
			return
		}

		response.Created(w, createResponse{
			OrderID: order.ID,
			SagaID:  order.SagaID,
			Status:  order.Status,
			Message: "order created",
		})
	}
}
