package router

import (
	"net/http"

	"po-pipeline/internal/handler"
	"po-pipeline/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options carries the router's collaborators.
type Options struct {
	PurchaseOrders *handler.PurchaseOrderHandler
	APIKey         string
	Logger         zerolog.Logger
	// Registry receives the HTTP collectors and backs /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry
}

// New creates a new HTTP router with all routes and middleware configured.
func New(opts Options) http.Handler {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := middleware.NewHTTPMetrics(reg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	po := opts.PurchaseOrders
	mux.HandleFunc("POST /api/purchase-orders", po.Create)
	mux.HandleFunc("GET /api/purchase-orders", po.List)
	mux.HandleFunc("GET /api/purchase-orders/metrics", po.Metrics)
	mux.HandleFunc("GET /api/purchase-orders/{id}", po.GetByID)
	mux.HandleFunc("PUT /api/purchase-orders/{id}", po.Update)
	mux.HandleFunc("DELETE /api/purchase-orders/{id}", po.Delete)
	mux.HandleFunc("PUT /api/purchase-orders/{id}/status", po.UpdateStatus)
	mux.HandleFunc("POST /api/purchase-orders/{id}/advance", po.Advance)
	mux.HandleFunc("POST /api/purchase-orders/{id}/revert", po.Revert)
	mux.HandleFunc("GET /api/purchase-orders/{id}/history", po.History)

	// Recovery -> Logging -> Metrics -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(opts.APIKey, opts.Logger)(handler)
	handler = middleware.CORS(handler)
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(opts.Logger)(handler)
	handler = middleware.Recovery(opts.Logger)(handler)

	return handler
}
