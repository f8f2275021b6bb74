package router

import (
	"log/slog"
	"net/http"

	"github.com/MartonCsizmazia/order-processing-system/internal/http/handlers"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/middlewares"
)

// OrderService is the command surface the router exposes; the saga
// orchestrator satisfies it.
type OrderService interface {
	handlers.OrderCreator
	handlers.OrderCanceller
	handlers.StatusUpdater
}

func New(service OrderService, store handlers.OrderReader, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/orders", handlers.Create(service))
	mux.HandleFunc("GET /api/v1/orders", handlers.ListByCustomer(store))
	mux.HandleFunc("GET /api/v1/orders/stale", handlers.ListStale(store))
	mux.HandleFunc("GET /api/v1/orders/{id}", handlers.GetByID(store))
	mux.HandleFunc("POST /api/v1/orders/{id}/cancel", handlers.Cancel(service))
	mux.HandleFunc("PUT /api/v1/orders/{id}/status", handlers.UpdateStatus(service))
	mux.HandleFunc("GET /api/v1/orders/status/{status}", handlers.ListByStatus(store))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return middlewares.Recovery(log)(mux)
}
