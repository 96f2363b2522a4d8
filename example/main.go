package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/labboard"
	"github.com/jpalmerr/labboard/example/mockbackend"
)

func main() {
	// start the mock backend (see mockbackend)
	backend := &http.Server{
		Addr:              ":9999",
		Handler:           mockbackend.New("", slog.Default()).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := backend.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock backend error", "error", err)
			os.Exit(1)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	lb, err := labboard.New(
		labboard.WithAPIBase("http://localhost:9999"),
		labboard.WithTitle("Demo Homelab"),
		labboard.WithRefreshInterval(10*time.Second),
		labboard.WithPort(8080),
		labboard.WithVerdictCallback(func(r labboard.VerdictResult) {
			if r.Verdict == labboard.VerdictOffline {
				slog.Warn("server offline", "server", r.Server, "group", r.Group)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create labboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Labboard Demo                                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock backend on :9999                               ║")
	fmt.Println("  ║   • 5 servers in 3 groups, verdicts flip every 20-60s ║")
	fmt.Println("  ║   • scans, saves and backups are kept in memory       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := lb.Start(ctx); err != nil {
		slog.Error("labboard error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = backend.Shutdown(shutdownCtx)
}
