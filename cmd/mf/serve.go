package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/komsit37/mf/pkg/mf/config"
	"github.com/komsit37/mf/pkg/mf/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			a, err := newApp(cfg, newLogger(cmd, cfg, "info"))
			if err != nil {
				return err
			}
			defer a.Close()

			runner, opts, err := a.runner()
			if err != nil {
				return err
			}
			srv := server.New(runner, server.Config{
				Addr:     cfg.Addr,
				Defaults: opts,
				Schedule: cfg.Schedule,
			}, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String(config.KeyAddr, ":8080", "Listen address")
	cmd.Flags().String(config.KeySchedule, "", `Cron schedule for background rescans, e.g. "0 6 * * 1-5"`)
	return cmd
}
