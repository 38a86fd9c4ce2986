package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/api"
	"github.com/amishk599/jobimport/internal/metrics"
	"github.com/amishk599/jobimport/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and the batch runner",
	Long:  "Serves the admin HTTP API and runs submitted and scheduled batches; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	if a.cfg.Server.JWTSecret == "" {
		logger.Error("server.jwt_secret is required for serve")
		os.Exit(1)
	}

	locker, closeLocker, err := setupLocker(ctx, a.cfg, logger)
	if err != nil {
		logger.Error("failed to set up run lock", "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	metrics.MustRegister()

	n := setupNotifier(a.cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	runner := scheduler.NewRunner(a.processor, locker, n, logger)

	srv := api.NewServer(a.processor, runner, api.NewAuth(a.cfg.Server.JWTSecret), a.cfg.Server.RequestTimeout, logger).
		WithDefaultPreferAI(a.cfg.AI.Enabled)
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	spec := ""
	if a.cfg.Schedule.Enabled {
		spec = a.cfg.Schedule.Spec
	}
	runnerDone := make(chan error, 1)
	go func() { runnerDone <- runner.Run(ctx, spec) }()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("admin api listening", "addr", a.cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("http server failed", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	if err := <-runnerDone; err != nil {
		logger.Error("batch runner error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
