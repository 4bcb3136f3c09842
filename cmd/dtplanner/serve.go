package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"dtplanner/pkg/config"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/persistence"
	"dtplanner/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Browse persisted runs over HTTP",
	Long: `Serve the run store read-only:

  GET /healthz
  GET /metrics                              (when metrics.enabled)
  GET /api/v1/runs?limit=N
  GET /api/v1/runs/:id
  GET /api/v1/runs/:id/markdown/:section    (plan, maturity, technology, readiness, report)
  GET /api/v1/logs?component=&since=RFC3339

When DTPLANNER_SERVER_PASSWORD is set (in the environment or the secrets file)
the /api routes require basic auth as user "dtplanner".`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := unlockSecrets(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := persistence.Open(ctx, appCfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		var opts []server.Option
		if appCfg.Metrics.Enabled {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			opts = append(opts, server.WithGatherer(reg))
		}
		if password, err := config.GetSecret(server.PasswordSecret); err == nil {
			opts = append(opts, server.WithPassword(password))
		} else {
			logx.NewLogger("server").Warn("%s not set; the API is unauthenticated", server.PasswordSecret)
		}

		addr := appCfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(store, opts...).Start(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}
