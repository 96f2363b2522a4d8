package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jpalmerr/labboard"
	"github.com/jpalmerr/labboard/internal/ui"
	"github.com/spf13/cobra"
)

// statusCmd runs a single health round and prints the result.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of every server once",
	Long: `Resolve the server inventory, run one health round and print the
verdict of every server grouped as on the dashboard. No HTTP server is
started.

With --fail-on-offline the command exits non-zero when any server is
offline, which makes it usable from cron or monitoring scripts.

Example:
  labboard status -c labboard.yaml
  labboard status -c labboard.yaml --json --timeout 20s`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Duration("timeout", 30*time.Second, "maximum time to wait for the health round")
	statusCmd.Flags().Bool("json", false, "print the report as JSON")
	statusCmd.Flags().Bool("fail-on-offline", false, "exit non-zero when a server is offline")
}

func runStatus(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	asJSON, _ := cmd.Flags().GetBool("json")
	failOnOffline, _ := cmd.Flags().GetBool("fail-on-offline")

	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lb, err := newLabboard(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	report, err := lb.Check(ctx)
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		printReport(out, report)
	}

	if offline := report.Counts()[labboard.VerdictOffline]; failOnOffline && offline > 0 {
		return fmt.Errorf("%d server(s) offline", offline)
	}
	return nil
}

// printReport writes report as aligned per-group columns.
func printReport(out io.Writer, report labboard.Report) {
	fmt.Fprintf(out, "%s %s\n", ui.Bold("Source:"), report.Source)
	if report.OverrideDiverges {
		ui.Warn(out, "a saved local override differs from the loaded configuration")
	}

	nameWidth, ipWidth := 0, 0
	for _, g := range report.Groups {
		for _, s := range g.Servers {
			nameWidth = max(nameWidth, len(s.Name))
			ipWidth = max(ipWidth, len(s.IP))
		}
	}

	for _, g := range report.Groups {
		fmt.Fprintf(out, "\n%s\n", ui.Bold(g.Name))
		if len(g.Servers) == 0 {
			fmt.Fprintf(out, "  %s\n", ui.Dim("no servers"))
			continue
		}
		for _, s := range g.Servers {
			line := fmt.Sprintf("  %s %-*s  %-*s", ui.Verdict(string(s.Verdict)), nameWidth, s.Name, ipWidth, s.IP)
			if s.Role != "" {
				line += "  " + s.Role
			}
			if !s.Probed {
				line += "  " + ui.Hint("(no health checks)")
			}
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
	}

	counts := report.Counts()
	fmt.Fprintf(out, "\n%d online, %d offline, %d unknown\n",
		counts[labboard.VerdictOnline], counts[labboard.VerdictOffline], counts[labboard.VerdictUnknown])
}
