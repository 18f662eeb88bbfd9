package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tpcpower/internal/app"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard",
		Long: `Loads the dataset and serves the dashboard page, the JSON API and the
WebSocket channel until interrupted. A missing dataset aborts before the
server listens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApplication(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initializing application: %w", err)
			}
			return application.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port, overrides server.port")
	return cmd
}
