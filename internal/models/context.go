package models

// Default aggregation parameters. These are the single source of truth;
// projectconfig and the CLI reference them rather than repeating values.
const (
	DefaultK         = 5
	DefaultThreshold = 0.8
)

// AggregationContext is the complete, immutable configuration for one
// aggregation pass: recomputation is a pure function of (context, run
// index). Mutating configuration means deriving a new context via the
// With* methods, which also encode the invalidation rules: a custom run
// selection only survives metric and threshold changes, because a
// selection sized for a different K, task, or dataset is not
// well-defined.
type AggregationContext struct {
	Task      string  `json:"task"`
	Dataset   string  `json:"dataset"`
	Metric    string  `json:"metric"`
	K         int     `json:"k"`
	Threshold float64 `json:"threshold"`

	// CustomSelections pins an explicit ordered run list per model,
	// overriding newest-K selection.
	CustomSelections map[string][]string `json:"custom_selections,omitempty"`

	// WithCI requests bootstrap confidence intervals; Seed makes them
	// deterministic so repeated computation stays bit-identical.
	WithCI bool  `json:"with_ci,omitempty"`
	Seed   int64 `json:"seed,omitempty"`
}

// NewAggregationContext returns a context for the given view with
// default K and threshold.
func NewAggregationContext(task, dataset, metric string) AggregationContext {
	return AggregationContext{
		Task:      task,
		Dataset:   dataset,
		Metric:    metric,
		K:         DefaultK,
		Threshold: DefaultThreshold,
	}
}

// Normalize clamps the context into its valid domain: K >= 1 and
// threshold within [0,1].
func (c AggregationContext) Normalize() AggregationContext {
	if c.K < 1 {
		c.K = 1
	}
	if c.Threshold < 0 {
		c.Threshold = 0
	} else if c.Threshold > 1 {
		c.Threshold = 1
	}
	return c
}

// WithMetric keeps custom selections: raw rows carry every metric, so a
// selection remains valid across metric changes.
func (c AggregationContext) WithMetric(metric string) AggregationContext {
	c.Metric = metric
	return c
}

// WithThreshold keeps custom selections.
func (c AggregationContext) WithThreshold(threshold float64) AggregationContext {
	c.Threshold = threshold
	return c.Normalize()
}

// WithK clears every model's custom selection: a selection sized for the
// old K is invalid.
func (c AggregationContext) WithK(k int) AggregationContext {
	c.K = k
	c.CustomSelections = nil
	return c.Normalize()
}

// WithView switches task and dataset, clearing custom selections.
func (c AggregationContext) WithView(task, dataset string) AggregationContext {
	c.Task = task
	c.Dataset = dataset
	c.CustomSelections = nil
	return c
}

// WithSelection pins an explicit run list for one model. The receiver's
// selection map is copied, never mutated.
func (c AggregationContext) WithSelection(model string, filePaths []string) AggregationContext {
	next := make(map[string][]string, len(c.CustomSelections)+1)
	for m, paths := range c.CustomSelections {
		next[m] = paths
	}
	next[model] = append([]string(nil), filePaths...)
	c.CustomSelections = next
	return c
}

// Selection returns the pinned run list for a model, or nil.
func (c AggregationContext) Selection(model string) []string {
	return c.CustomSelections[model]
}
