package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/evalview/evalview/internal/fetch"
	"github.com/evalview/evalview/internal/metrics"
	"github.com/evalview/evalview/internal/models"
	"github.com/evalview/evalview/internal/selection"
)

// ErrStale reports that a computation was superseded by a newer
// configuration before it finished. It is a coordination signal, not a
// failure: callers drop the result and keep the fresher one.
var ErrStale = errors.New("aggregation superseded by a newer configuration")

// RunIndex supplies the run references available under a task+dataset
// view, including run-level metric averages. Implementations decide
// storage; the engine only reads.
type RunIndex interface {
	Runs(task, dataset string) []models.RunRef
}

// Result is one complete aggregation pass: per-model statistics plus the
// display ranking, tagged with the generation that produced it.
type Result struct {
	Generation uint64                           `json:"generation"`
	Context    models.AggregationContext        `json:"context"`
	IsBoolean  bool                             `json:"is_boolean"`
	Threshold  float64                          `json:"effective_threshold"`
	Stats      map[string]models.AggregateStats `json:"stats"`
	Ranking    []models.RankedModel             `json:"ranking"`
}

// Engine runs the full aggregation pipeline: detect metric type, select
// runs per model, fetch snapshots concurrently, aggregate, rank.
//
// Every invocation is tagged with a monotonically increasing generation
// at start; a completion that finds a newer generation has since started
// is discarded (last-writer-wins by generation, not by completion time),
// so rapid configuration changes can never overwrite fresh statistics
// with stale ones.
type Engine struct {
	index   RunIndex
	fetcher *fetch.Fetcher
	logger  *slog.Logger

	gen atomic.Uint64

	// Computed results are cached per exact context and discarded when
	// the task+dataset view changes. Metric, threshold, K, and selection
	// changes land on a different key, which forces recomputation without
	// touching the fetcher's row cache.
	mu      sync.Mutex
	applied uint64
	latest  *Result
	view    string
	results map[string]*Result
}

// NewEngine creates an Engine over the given run index and fetcher.
func NewEngine(index RunIndex, fetcher *fetch.Fetcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		index:   index,
		fetcher: fetcher,
		logger:  logger,
		results: make(map[string]*Result),
	}
}

// Compute runs one full aggregation pass for the given configuration.
// It returns ErrStale when a newer configuration started before this one
// finished; no other condition in the pipeline is an error, because
// per-model fetch failures degrade to no-data statistics.
func (e *Engine) Compute(ctx context.Context, aggCtx models.AggregationContext) (*Result, error) {
	aggCtx = aggCtx.Normalize()

	if res := e.cachedResult(aggCtx); res != nil {
		return res, nil
	}

	gen := e.gen.Add(1)
	runs := e.index.Runs(aggCtx.Task, aggCtx.Dataset)

	isBoolean := metrics.DetectBoolean(observedAverages(runs, aggCtx.Metric))
	threshold := metrics.EffectiveThreshold(isBoolean, aggCtx.Threshold)

	modelOrder, byModel := groupByModel(runs)

	stats := make(map[string]models.AggregateStats, len(modelOrder))
	var statsMu sync.Mutex

	// Per-model fetches are independent: a failure or delay for one model
	// must not block or corrupt the others.
	g, gctx := errgroup.WithContext(ctx)
	for _, model := range modelOrder {
		g.Go(func() error {
			set := selection.Select(model, byModel[model], aggCtx.Selection(model), aggCtx.K)
			snaps := e.fetcher.Fetch(gctx, set.SelectedRuns)
			s := Aggregate(Input{
				RunSet:    set,
				Snapshots: snaps,
				Metric:    aggCtx.Metric,
				Threshold: threshold,
				IsBoolean: isBoolean,
				WithCI:    aggCtx.WithCI,
				Seed:      aggCtx.Seed,
			})
			statsMu.Lock()
			stats[model] = s
			statsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Generation: gen,
		Context:    aggCtx,
		IsBoolean:  isBoolean,
		Threshold:  threshold,
		Stats:      stats,
		Ranking:    Rank(modelOrder, stats),
	}

	if !e.apply(gen, aggCtx, res) {
		e.logger.Debug("discarding stale aggregation", "generation", gen)
		return nil, ErrStale
	}
	return res, nil
}

// Latest returns the most recently applied result, or nil.
func (e *Engine) Latest() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

func (e *Engine) cachedResult(aggCtx models.AggregationContext) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view != viewKey(aggCtx) {
		return nil
	}
	return e.results[contextKey(aggCtx)]
}

// apply installs a finished result unless a newer generation has started.
func (e *Engine) apply(gen uint64, aggCtx models.AggregationContext, res *Result) bool {
	if e.gen.Load() != gen {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen <= e.applied {
		return false
	}
	if view := viewKey(aggCtx); view != e.view {
		// Stats from another task/dataset view are discarded, not retained.
		e.view = view
		e.results = make(map[string]*Result)
	}
	e.results[contextKey(aggCtx)] = res
	e.applied = gen
	e.latest = res
	return true
}

func observedAverages(runs []models.RunRef, metric string) []float64 {
	avgs := make([]float64, 0, len(runs))
	for _, r := range runs {
		if v, ok := r.MetricAverages[metric]; ok {
			avgs = append(avgs, v)
		}
	}
	return avgs
}

// groupByModel splits runs per model, preserving first-discovery order
// so tie-broken rankings stay stable across recomputations.
func groupByModel(runs []models.RunRef) ([]string, map[string][]models.RunRef) {
	order := make([]string, 0)
	byModel := make(map[string][]models.RunRef)
	for _, r := range runs {
		if _, ok := byModel[r.Model]; !ok {
			order = append(order, r.Model)
		}
		byModel[r.Model] = append(byModel[r.Model], r)
	}
	return order, byModel
}

func viewKey(aggCtx models.AggregationContext) string {
	return aggCtx.Task + "\x00" + aggCtx.Dataset
}

// contextKey builds a deterministic cache key over every field that
// affects the computed statistics.
func contextKey(aggCtx models.AggregationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%s\x00%s\x00%d\x00%g\x00%v\x00%d",
		aggCtx.Task, aggCtx.Dataset, aggCtx.Metric,
		aggCtx.K, aggCtx.Threshold, aggCtx.WithCI, aggCtx.Seed)
	if len(aggCtx.CustomSelections) > 0 {
		selModels := make([]string, 0, len(aggCtx.CustomSelections))
		for m := range aggCtx.CustomSelections {
			selModels = append(selModels, m)
		}
		sort.Strings(selModels)
		for _, m := range selModels {
			fmt.Fprintf(&b, "\x00%s=%s", m, strings.Join(aggCtx.CustomSelections[m], ","))
		}
	}
	return b.String()
}
