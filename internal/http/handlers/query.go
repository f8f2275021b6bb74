package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/lib/api/response"
)

type OrderReader interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByCustomerID(ctx context.Context, customerID string) ([]*model.Order, error)
	FindByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error)
	FindStale(ctx context.Context, status model.OrderStatus, threshold time.Time) ([]*model.Order, error)
}

func GetByID(store OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := store.FindByID(r.Context(), r.PathValue("id"))
		if err != nil {
			respondError(w, err)
			return
		}

		response.OK(w, order)
	}
}

func ListByCustomer(store OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := r.URL.Query().Get("customer_id")
		if customerID == "" {
			response.BadRequest(w, "customer_id query parameter is required")
			return
		}

		orders, err := store.FindByCustomerID(r.Context(), customerID)
		if err != nil {
			respondError(w, err)
			return
		}

		response.OK(w, orders)
	}
}

func ListByStatus(store OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.OrderStatus(r.PathValue("status"))
		if !status.Valid() {
			response.BadRequest(w, "unknown order status")
			return
		}

		orders, err := store.FindByStatus(r.Context(), status)
		if err != nil {
			respondError(w, err)
			return
		}

		response.OK(w, orders)
	}
}

// ListStale surfaces orders stuck in one status longer than older_than
// (a Go duration, default 15m). Operators use it to spot sagas whose
// inventory or payment confirmation never arrived.
func ListStale(store OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.OrderStatus(r.URL.Query().Get("status"))
		if !status.Valid() {
			response.BadRequest(w, "unknown order status")
			return
		}

		olderThan := 15 * time.Minute
		if raw := r.URL.Query().Get("older_than"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				response.BadRequest(w, "older_than must be a positive duration")
				return
			}
			olderThan = d
		}

		orders, err := store.FindStale(r.Context(), status, time.Now().UTC().Add(-olderThan))
		if err != nil {
			respondError(w, err)
			return
		}

		response.OK(w, orders)
	}
}
