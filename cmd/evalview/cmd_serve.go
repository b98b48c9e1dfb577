package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evalview/evalview/internal/aggregate"
	"github.com/evalview/evalview/internal/fetch"
	"github.com/evalview/evalview/internal/projectconfig"
	"github.com/evalview/evalview/internal/runstore"
	"github.com/evalview/evalview/internal/webapi"
	"github.com/evalview/evalview/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int
	var runsDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server behind the comparison dashboard",
		Long: `Start an HTTP server exposing the run index and the aggregation
engine as a JSON API:

  GET  /api/health     health check
  GET  /api/views      task+dataset combinations in the store
  GET  /api/runs       run index for one view (?task=&dataset=)
  GET  /api/metrics    metric names under one view (?task=&dataset=)
  POST /api/aggregate  per-model robustness statistics plus ranking`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Server.Port
			}
			if runsDir == "" {
				runsDir = cfg.Paths.Runs
			}

			logger := slog.Default()
			store := runstore.NewFileStore(runsDir, logger)
			engine := aggregate.NewEngine(store, fetch.New(store, logger), logger)

			srv, err := webserver.New(webserver.Config{
				Port:     port,
				Handlers: webapi.NewHandlers(store, engine),
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from .evalview.yaml)")
	cmd.Flags().StringVar(&runsDir, "runs", "", "Directory of run snapshot files (default from .evalview.yaml)")

	return cmd
}
