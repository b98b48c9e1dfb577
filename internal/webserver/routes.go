package webserver

import (
	"net/http"

	"github.com/evalview/evalview/internal/webapi"
)

// registerRoutes sets up the API routes on the given mux.
func registerRoutes(mux *http.ServeMux, h *webapi.Handlers) {
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/views", h.HandleViews)
	mux.HandleFunc("GET /api/runs", h.HandleRuns)
	mux.HandleFunc("GET /api/metrics", h.HandleMetrics)
	mux.HandleFunc("POST /api/aggregate", h.HandleAggregate)
}
