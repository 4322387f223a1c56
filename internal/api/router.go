package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the HTTP surface. gatherer backs /metrics; nil disables it.
func NewRouter(svc OrderService, logger *zap.Logger, gatherer prometheus.Gatherer) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := NewHandler(svc, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(Logging(logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	router.Get("/statuses/{code}/next", h.NextStatuses())
	router.Post("/payments/normalize", h.NormalizePayment())

	// routes scoped to a business
	router.Group(func(group chi.Router) {
		group.Use(Business)
		group.Post("/orders", h.PlaceOrder())
		group.Get("/orders", h.ListOrders())
		group.Get("/orders/{id}", h.GetOrder())
		group.Post("/orders/{id}/transition", h.Transition())
		group.Post("/orders/{id}/ship", h.Ship())
		group.Put("/orders/{id}/lines", h.UpdateLines())
	})

	return router
}
