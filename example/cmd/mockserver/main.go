// Standalone mock homelab backend for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/labboard serve -c example/labboard.yaml
//
// Set LABBOARD_MOCK_API_KEY to require an API key on every request.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/labboard/example/mockbackend"
)

func main() {
	apiKey := os.Getenv("LABBOARD_MOCK_API_KEY")

	fmt.Println("Mock homelab backend starting on :9999")
	fmt.Println("Health verdicts flip between online and offline every 20-60s")
	if apiKey != "" {
		fmt.Println("Requests must carry the API key from LABBOARD_MOCK_API_KEY")
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := &http.Server{
		Addr:              ":9999",
		Handler:           mockbackend.New(apiKey, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
