package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/evalview/evalview/internal/aggregate"
	"github.com/evalview/evalview/internal/fetch"
	"github.com/evalview/evalview/internal/models"
	"github.com/evalview/evalview/internal/projectconfig"
	"github.com/evalview/evalview/internal/runstore"
)

type compareOptions struct {
	runsDir   string
	task      string
	dataset   string
	metric    string
	k         int
	threshold float64
	preset    string
	withCI    bool
	seed      int64
	format    string
}

func newCompareCommand() *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare models by cross-run robustness statistics",
		Long: `Aggregate every model's repeated runs under a task+dataset view and
print the robustness comparison: Pass@K, Pass^K, Max@K, Consistency,
Reliability, and the per-model ranking by average score.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.runsDir, "runs", "", "Directory of run snapshot files (default from .evalview.yaml)")
	cmd.Flags().StringVar(&opts.task, "task", "", "Task name")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "Dataset name")
	cmd.Flags().StringVar(&opts.metric, "metric", "", "Metric to aggregate")
	cmd.Flags().IntVar(&opts.k, "k", models.DefaultK, "Number of runs per model (K)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", models.DefaultThreshold, "Pass threshold for continuous metrics")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Saved view preset from .evalview.yaml (flags override it)")
	cmd.Flags().BoolVar(&opts.withCI, "ci", false, "Attach bootstrap confidence intervals")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Bootstrap seed (negative for non-deterministic)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table or json")

	return cmd
}

func runCompare(cmd *cobra.Command, opts compareOptions) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", opts.format)
	}

	cfg, err := projectconfig.Load(".")
	if err != nil {
		return err
	}

	aggCtx, err := buildContext(cmd, cfg, opts)
	if err != nil {
		return err
	}
	if aggCtx.Task == "" || aggCtx.Dataset == "" || aggCtx.Metric == "" {
		return fmt.Errorf("task, dataset, and metric are required (flags or preset)")
	}

	if opts.runsDir == "" {
		opts.runsDir = cfg.Paths.Runs
	}
	store := runstore.NewFileStore(opts.runsDir, nil)
	engine := aggregate.NewEngine(store, fetch.New(store, nil), nil)

	res, err := engine.Compute(cmd.Context(), aggCtx)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printComparisonTable(res)
	return nil
}

// buildContext resolves the aggregation context from the preset (if any)
// overlaid with explicitly set flags.
func buildContext(cmd *cobra.Command, cfg *projectconfig.ProjectConfig, opts compareOptions) (models.AggregationContext, error) {
	aggCtx := models.NewAggregationContext(opts.task, opts.dataset, opts.metric)
	aggCtx.K = opts.k
	aggCtx.Threshold = opts.threshold
	aggCtx.WithCI = opts.withCI
	aggCtx.Seed = opts.seed

	if opts.preset == "" {
		return aggCtx.Normalize(), nil
	}

	params, err := cfg.Preset(opts.preset)
	if err != nil {
		return aggCtx, err
	}
	aggCtx = params.Context()

	flags := cmd.Flags()
	if flags.Changed("task") {
		aggCtx.Task = opts.task
	}
	if flags.Changed("dataset") {
		aggCtx.Dataset = opts.dataset
	}
	if flags.Changed("metric") {
		aggCtx = aggCtx.WithMetric(opts.metric)
	}
	if flags.Changed("k") {
		aggCtx = aggCtx.WithK(opts.k)
	}
	if flags.Changed("threshold") {
		aggCtx = aggCtx.WithThreshold(opts.threshold)
	}
	if flags.Changed("ci") {
		aggCtx.WithCI = opts.withCI
	}
	if flags.Changed("seed") {
		aggCtx.Seed = opts.seed
	}
	return aggCtx.Normalize(), nil
}

func printComparisonTable(res *aggregate.Result) {
	metricKind := "continuous"
	if res.IsBoolean {
		metricKind = "boolean"
	}

	fmt.Println(strings.Repeat("=", 92))
	fmt.Printf(" MODEL COMPARISON  task=%s dataset=%s metric=%s (%s) K=%d threshold=%.4f\n",
		res.Context.Task, res.Context.Dataset, res.Context.Metric,
		metricKind, res.Context.K, res.Threshold)
	fmt.Println(strings.Repeat("=", 92))

	fmt.Printf("  %s %9s %9s %9s %9s %12s %12s %7s\n",
		padRight("Model", 24), "Avg", "Pass@K", "Pass^K", "Max@K",
		"Consistency", "Reliability", "Runs")

	for _, rm := range res.Ranking {
		s := res.Stats[rm.Model]
		if s.NoData {
			fmt.Printf("  %s %s\n", padRight(truncate(rm.Model, 24), 24), "no data")
			continue
		}
		fmt.Printf("  %s %9.4f %8.1f%% %8.1f%% %9.4f %12s %12s %4d/%d\n",
			padRight(truncate(rm.Model, 24), 24),
			s.AvgScore, s.PassAtK*100, s.PassHatK*100, s.MaxAtK,
			percentOrNA(s.Consistency), percentOrNA(s.Reliability),
			s.SelectedCount, s.TotalAvailable)
	}

	for _, rm := range res.Ranking {
		s := res.Stats[rm.Model]
		if !s.NoData && s.SelectedCount < res.Context.K && s.SelectedCount == s.TotalAvailable {
			fmt.Printf("\n  note: %s has only %d of %d requested runs\n",
				rm.Model, s.SelectedCount, res.Context.K)
		}
	}
}

func percentOrNA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
