package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/antlia/antlia"
	"github.com/antlia/antlia/views"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the website",
		Long: `Serve opens the configured stores, applies pending migrations and serves
the site until it receives SIGINT or SIGTERM. In-flight requests and page-view
writes are drained before the stores are closed.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := antlia.New(cfg, views.Default(), antlia.WithLogger(logger))
	if err := app.Setup(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close stores", slog.Any("error", err))
		}
	}()
	app.Echo.HideBanner = true

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr), slog.String("url", cfg.URL))
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("received shutdown signal, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}
