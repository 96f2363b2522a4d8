// Package main is the entry point for the labboard CLI.
//
// Labboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	labboard serve -c labboard.yaml     # Start the dashboard
//	labboard status -c labboard.yaml    # Print one health round and exit
//	labboard export -c labboard.yaml    # Write the active configuration
//	labboard validate -c labboard.yaml  # Validate configuration
//	labboard version                    # Show version info
//
// Every persistent flag can also be set from the environment with the
// LABBOARD_ prefix, e.g. LABBOARD_API_KEY or LABBOARD_CONFIG.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jpalmerr/labboard"
	"github.com/jpalmerr/labboard/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "labboard",
	Short: "A status dashboard for homelab servers",
	Long: `Labboard is a live status dashboard for the servers in a homelab.

It loads the server inventory from the homelab backend (falling back to a
static file, a saved local override or an embedded copy), probes each
server's health through the backend and streams the results to a web UI.

Quick start:
  1. Create a config file (labboard.yaml)
  2. Run: labboard serve -c labboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  api:
    base: http://nas.lan:8000/api
    key: ${LABBOARD_API_KEY:-}
  sources:
    static: ./servers.json`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this labboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "labboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file")
	pf.String("api-base", "", "backend base URL, overrides api.base")
	pf.String("api-key", "", "backend API key, overrides api.key")
	pf.String("bearer", "", "backend bearer token, overrides api.bearer")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	for _, name := range []string{"config", "api-base", "api-key", "bearer", "log-level"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(versionCmd)
}

// initConfig lets LABBOARD_* environment variables stand in for flags.
func initConfig() {
	viper.SetEnvPrefix("labboard")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the config file named by --config and applies flag and
// environment overrides on top of it.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		return nil, errors.New("a config file is required (--config or LABBOARD_CONFIG)")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(viper.GetString("api-base")); v != "" {
		cfg.API.Base = v
	}
	if v := strings.TrimSpace(viper.GetString("api-key")); v != "" {
		cfg.API.Key = v
	}
	if v := strings.TrimSpace(viper.GetString("bearer")); v != "" {
		cfg.API.Bearer = v
	}
	return cfg, nil
}

// newLabboard builds the SDK instance for cfg.
func newLabboard(cfg *config.Config, logger *slog.Logger, extra ...labboard.Option) (*labboard.Labboard, error) {
	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, labboard.WithLogger(logger))
	opts = append(opts, extra...)

	lb, err := labboard.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Labboard: %w", err)
	}
	return lb, nil
}

// newLogger creates a JSON logger for CLI use at the configured level.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})), nil
}
