package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/labboard"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the Labboard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the Labboard dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Resolve the server inventory from the backend or its fallbacks
  - Probe server health and refresh discoveries on schedule
  - Serve the dashboard UI on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  labboard serve -c labboard.yaml
  LABBOARD_API_KEY=secret labboard serve --config /etc/labboard/labboard.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"api_base", cfg.API.Base,
		"static_source", cfg.Sources.Static,
		"state_file", cfg.StateFile,
	)

	logVerdict := labboard.WithVerdictCallback(func(r labboard.VerdictResult) {
		if r.Verdict == labboard.VerdictOffline {
			logger.Warn("server offline", "server", r.Server, "group", r.Group)
		}
	})
	lb, err := newLabboard(cfg, logger, logVerdict)
	if err != nil {
		return err
	}

	logger.Info("starting server",
		"port", lb.Port(),
		"refresh_interval", lb.RefreshInterval().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- lb.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
