package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"billing/cmd"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job scheduler",
		Long: `serve reconciles the job store, arms a timer for every pending job due
this month, starts the periodic reconciliation and serves the HTTP API until
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return serve(c.Context(), *envFile)
		},
	}
}

func serve(ctx context.Context, envFile string) error {
	cfg, err := cmd.LoadConfig(envFile)
	if err != nil {
		return err
	}
	logger := newLogger()

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	app, err := cmd.NewCompositionRoot(cfg, db, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconciliation := app.CreateReconciliationJob()
	manager := app.CreateJobManager(reconciliation)
	defer manager.StopAll()

	report, err := reconciliation.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}
	logger.InfoContext(ctx, "Startup reconciliation finished",
		"interrupted", report.Interrupted,
		"overdue", report.Overdue,
		"scheduled", report.Scheduled,
		"stranded", report.Stranded,
	)

	if err := manager.StartAll(); err != nil {
		return err
	}

	e, err := app.CreateEcho()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
		logger.InfoContext(ctx, "HTTP server listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown requested")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
