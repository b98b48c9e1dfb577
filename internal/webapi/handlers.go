// Package webapi exposes the aggregation engine and run index as a JSON
// API consumed by the model-comparison dashboard. Rendering lives
// entirely in the client; this package serves data only.
package webapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evalview/evalview/internal/aggregate"
	"github.com/evalview/evalview/internal/models"
	"github.com/evalview/evalview/internal/runstore"
)

// Version is set at build time or defaults to dev.
var Version = "0.3.0"

// RunIndex is the read side of the run store the API serves.
type RunIndex interface {
	Runs(task, dataset string) []models.RunRef
	Views() []runstore.View
	Metrics(task, dataset string) []string
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	index  RunIndex
	engine *aggregate.Engine
}

// NewHandlers creates a new Handlers over the given index and engine.
func NewHandlers(index RunIndex, engine *aggregate.Engine) *Handlers {
	return &Handlers{index: index, engine: engine}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleViews lists the task+dataset combinations available in the store.
func (h *Handlers) HandleViews(w http.ResponseWriter, _ *http.Request) {
	views := h.index.Views()
	if views == nil {
		views = []runstore.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleRuns returns the run index for a task+dataset view, newest first.
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	task := r.URL.Query().Get("task")
	dataset := r.URL.Query().Get("dataset")
	if task == "" || dataset == "" {
		writeError(w, http.StatusBadRequest, "task and dataset are required")
		return
	}

	runs := h.index.Runs(task, dataset)
	if runs == nil {
		runs = []models.RunRef{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleMetrics returns the metric names declared under a view.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	task := r.URL.Query().Get("task")
	dataset := r.URL.Query().Get("dataset")
	if task == "" || dataset == "" {
		writeError(w, http.StatusBadRequest, "task and dataset are required")
		return
	}
	writeJSON(w, http.StatusOK, h.index.Metrics(task, dataset))
}

// HandleAggregate runs a full aggregation pass for the requested
// configuration and returns per-model statistics plus the ranking.
// A computation superseded mid-flight is a normal outcome: the handler
// answers with the fresher applied result instead of an error.
func (h *Handlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Task == "" || req.Dataset == "" || req.Metric == "" {
		writeError(w, http.StatusBadRequest, "task, dataset, and metric are required")
		return
	}

	res, err := h.engine.Compute(r.Context(), req.Context())
	if err != nil {
		if errors.Is(err, aggregate.ErrStale) {
			if latest := h.engine.Latest(); latest != nil {
				writeJSON(w, http.StatusOK, latest)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "no aggregation result available yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: status})
}
