package webapi

import "github.com/evalview/evalview/internal/models"

// AggregateRequest is the POST /api/aggregate body. Zero K and threshold
// fall back to the engine defaults.
type AggregateRequest struct {
	Task             string              `json:"task"`
	Dataset          string              `json:"dataset"`
	Metric           string              `json:"metric"`
	K                int                 `json:"k,omitempty"`
	Threshold        *float64            `json:"threshold,omitempty"`
	CustomSelections map[string][]string `json:"custom_selections,omitempty"`
	WithCI           bool                `json:"with_ci,omitempty"`
	Seed             int64               `json:"seed,omitempty"`
}

// Context converts the request into an AggregationContext.
func (r AggregateRequest) Context() models.AggregationContext {
	aggCtx := models.NewAggregationContext(r.Task, r.Dataset, r.Metric)
	if r.K > 0 {
		aggCtx.K = r.K
	}
	if r.Threshold != nil {
		aggCtx.Threshold = *r.Threshold
	}
	aggCtx.CustomSelections = r.CustomSelections
	aggCtx.WithCI = r.WithCI
	aggCtx.Seed = r.Seed
	return aggCtx.Normalize()
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
