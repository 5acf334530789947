package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/syncer"
)

var driftFlags struct {
	output string
}

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Compare desired and running configuration",
	Long: `Compare the desired configuration against what the proxy is running.

The desired Caddyfile is adapted to JSON and diffed against the runtime
configuration, key by key at the top level. The check is read-only: it
never modifies the proxy or the saved state.

The exit code is 0 when in sync and 1 when drift is found, so the
command works as a check in scripts and cron jobs.

Examples:
  # Human-readable report
  ganymede drift

  # Machine-readable report
  ganymede drift --output json`,
	RunE: runDrift,
}

func init() {
	rootCmd.AddCommand(driftCmd)

	driftCmd.Flags().StringVarP(&driftFlags.output, "output", "o", "text", "output format (text, json)")
}

func runDrift(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(driftFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := oneShot(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), opTimeout)
	defer cancel()

	report, err := mgr.CheckDrift(ctx)
	if err != nil {
		return err
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printDriftReport(report)
	}

	if !report.InSync() {
		return fmt.Errorf("configuration drift detected")
	}
	return nil
}

func printDriftReport(report *syncer.DriftReport) {
	if report.InSync() {
		fmt.Println("✓ Desired and running configuration match")
		return
	}
	for _, key := range report.OnlyInDesired {
		fmt.Printf("  + %s (desired only)\n", key)
	}
	for _, key := range report.OnlyInRuntime {
		fmt.Printf("  - %s (runtime only)\n", key)
	}
	for _, key := range report.Changed {
		fmt.Printf("  ~ %s (changed)\n", key)
	}
}
