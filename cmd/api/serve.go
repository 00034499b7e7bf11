package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/infra/db"
	"storefront/internal/logger"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

With EVENT_BUS=memory the fulfillment pipeline runs in the same process.
With EVENT_BUS=kafka run "storefront worker" alongside.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.SetupDefault(os.Stdout, cfg.LogLevel)

			if migrate && cfg.StoreDriver == config.StorePostgres {
				if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
					return err
				}
				log.Info("migrations applied")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			return a.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply postgres migrations before serving")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
