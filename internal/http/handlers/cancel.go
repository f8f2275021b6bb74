package handlers

import (
	"context"
	"net/http"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/lib/api/decode"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/lib/api/response"
)

type OrderCanceller interface {
	CancelOrder(ctx context.Context, orderID string) (*model.Order, error)
}

type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus) (*model.Order, error)
}

type statusResponse struct {
	OrderID string            `json:"order_id"`
	Status  model.OrderStatus `json:"status"`
}

func Cancel(service OrderCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := service.CancelOrder(r.Context(), r.PathValue("id"))
		if err != nil {
			respondError(w, err)
			return
		}

		response.OK(w, statusResponse{OrderID: order.ID, Status: order.Status})
	}
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

func UpdateStatus(service StatusUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest

		if err := decode.JSON(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		order, err := service.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status)
		if err != nil {
			respondError(w, err)
			return
		}

		response.OK(w, statusResponse{OrderID: order.ID, Status: order.Status})
	}
}
