package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/cli"
	httpAdapter "github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/http"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/assist"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the assist loop",
	Long: `Starts the companion server for the browser panel: the JSON API, the
SSE stream of drafts, Prometheus metrics on /metrics and the assist loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		streams := httpAdapter.NewStreamManager(logger)
		host := httpAdapter.NewHost(streams)
		hooks := observability.Combine(observability.NewMetrics(reg).Hooks(logger), streams.Hooks())

		app, err := cli.NewApp(ctx, cfg, cli.AppOptions{
			Host:     host,
			Hooks:    hooks,
			OnChange: streams.PublishDiff,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		defer app.Close()

		settings, err := app.Library.Settings(ctx)
		if err != nil {
			return err
		}
		loop := assist.NewLoop(host, app.Controller,
			assist.WithInterval(cfg.PollInterval),
			assist.WithEnabled(cfg.Assist || settings.Enabled),
			assist.WithLifecycleHooks(hooks),
			assist.WithLogger(logger),
		)

		server := httpAdapter.NewServer(app.Controller, app.Library, loop, host, streams,
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go loop.Run(ctx)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting assistant server", "addr", srv.Addr, "store", cfg.Store.Type, "assist", loop.Enabled())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
			logger.Info("Shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// SSE handlers only return when their client goes away.
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
}
