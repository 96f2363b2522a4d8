package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jpalmerr/labboard/config"
	"github.com/jpalmerr/labboard/internal/ui"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a Labboard configuration file without starting the server.

This command parses the YAML, expands environment variables, applies flag
and LABBOARD_* overrides, reads the embedded fallback file and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  labboard validate -c labboard.yaml
  labboard validate --config /etc/labboard/labboard.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// building the SDK instance catches unreadable embedded files and bad
	// overrides that the YAML layer cannot see
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	lb, err := newLabboard(cfg, quiet)
	if err != nil {
		ui.ValidationErr(out, "config", err.Error(), "check the sources section and any LABBOARD_* overrides")
		return fmt.Errorf("invalid config: %w", err)
	}

	ui.Success(out, "Config is valid!")
	ui.ValidationOK(out, "port", fmt.Sprint(cfg.Port))
	ui.ValidationOK(out, "api.base", cfg.API.Base)
	ui.ValidationOK(out, "api.auth", authMode(cfg))
	ui.ValidationOK(out, "sources.static", orNone(cfg.Sources.Static))
	ui.ValidationOK(out, "sources.embedded", orNone(cfg.Sources.Embedded))
	ui.ValidationOK(out, "refresh_interval", describeInterval(cfg.RefreshInterval, lb.RefreshInterval()))
	ui.ValidationOK(out, "discovery_interval", describeInterval(cfg.DiscoveryInterval, lb.DiscoveryInterval()))
	ui.ValidationOK(out, "health.extractor", describeExtractor(cfg.Health.Extractor))

	if cfg.StateFile == "" {
		ui.Warn(out, "no state_file set, credentials and local overrides last only until restart")
	} else {
		ui.ValidationOK(out, "state_file", cfg.StateFile)
	}

	return nil
}

func authMode(cfg *config.Config) string {
	switch {
	case cfg.API.Key != "" && cfg.API.Bearer != "":
		return "api key and bearer token"
	case cfg.API.Key != "":
		return "api key"
	case cfg.API.Bearer != "":
		return "bearer token"
	default:
		return "none"
	}
}

func orNone(s string) string {
	if s == "" {
		return ui.Dim("none")
	}
	return s
}

func describeInterval(d *config.Duration, effective time.Duration) string {
	switch {
	case effective == 0:
		return "disabled"
	case d == nil:
		return effective.String() + " " + ui.Hint("(default)")
	default:
		return effective.String()
	}
}

func describeExtractor(ec config.ExtractorConfig) string {
	switch ec.Type {
	case "", "default":
		return "default"
	case "json":
		return "json:" + ec.Path
	case "contains":
		return "contains:" + ec.Text
	default:
		return ec.Type + " " + ec.Pattern
	}
}
