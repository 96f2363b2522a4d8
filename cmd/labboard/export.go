package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jpalmerr/labboard/internal/ui"
	"github.com/spf13/cobra"
)

// exportCmd writes the configuration the editor would open with.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the active server configuration",
	Long: `Resolve the server inventory and write it as servers.json.

The saved local override is exported when there is one, otherwise the
resolved configuration in canonical form. The output can be re-imported
from the dashboard editor or served as the static source.

Example:
  labboard export -c labboard.yaml -o servers.json
  labboard export -c labboard.yaml > servers.json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "-", `output file, "-" for stdout`)
	exportCmd.Flags().Duration("timeout", 30*time.Second, "maximum time to wait for the backend")
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// keep stdout clean for the exported document
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	lb, err := newLabboard(cfg, quiet)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	text, err := lb.Export(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if output == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	ui.Success(cmd.ErrOrStderr(), "Exported configuration to "+output)
	return nil
}
