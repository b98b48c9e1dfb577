package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalview/evalview/internal/aggregate"
	"github.com/evalview/evalview/internal/fetch"
	"github.com/evalview/evalview/internal/models"
	"github.com/evalview/evalview/internal/projectconfig"
	"github.com/evalview/evalview/internal/runstore"
	"github.com/evalview/evalview/internal/wizard"
)

func newSelectCommand() *cobra.Command {
	var runsDir string
	var task, dataset, metric string
	var k int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Interactively pin a custom run selection and recompare",
		Long: `Pick a model and pin an explicit ordered subset of its runs, then
recompute the comparison with that selection instead of the newest K.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}
			if runsDir == "" {
				runsDir = cfg.Paths.Runs
			}
			if task == "" || dataset == "" || metric == "" {
				return fmt.Errorf("task, dataset, and metric are required")
			}

			store := runstore.NewFileStore(runsDir, nil)
			runs := store.Runs(task, dataset)
			if len(runs) == 0 {
				return fmt.Errorf("no runs found for task=%s dataset=%s", task, dataset)
			}

			runsByModel := make(map[string][]models.RunRef)
			for _, r := range runs {
				runsByModel[r.Model] = append(runsByModel[r.Model], r)
			}

			sel, err := wizard.PickRuns(os.Stdin, os.Stdout, runsByModel, k)
			if err != nil {
				return err
			}

			aggCtx := models.NewAggregationContext(task, dataset, metric)
			aggCtx.K = k
			aggCtx.Threshold = threshold
			aggCtx = aggCtx.WithSelection(sel.Model, sel.FilePaths)

			engine := aggregate.NewEngine(store, fetch.New(store, nil), nil)
			res, err := engine.Compute(cmd.Context(), aggCtx)
			if err != nil {
				return err
			}
			printComparisonTable(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&runsDir, "runs", "", "Directory of run snapshot files (default from .evalview.yaml)")
	cmd.Flags().StringVar(&task, "task", "", "Task name")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset name")
	cmd.Flags().StringVar(&metric, "metric", "", "Metric to aggregate")
	cmd.Flags().IntVar(&k, "k", models.DefaultK, "Number of runs per model (K)")
	cmd.Flags().Float64Var(&threshold, "threshold", models.DefaultThreshold, "Pass threshold for continuous metrics")

	return cmd
}
