package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evalview",
		Short: "Evalview - robustness statistics for repeated model evaluations",
		Long: `Evalview aggregates repeated, independently-run evaluations of the
same (task, dataset, model) combination into cross-run robustness
statistics: Pass@K, Pass^K, Max@K, Consistency, Reliability, and a
per-item pass-count distribution, plus a stable per-model ranking.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newSelectCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
