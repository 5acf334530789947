package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/manager"
)

// shutdownGrace bounds the graceful stop after a signal or fatal error.
const shutdownGrace = 15 * time.Second

var runFlags struct {
	endpoint string
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede control plane",
	Long: `Start the control plane with the specified configuration.

Ganymede loads the last saved configuration, brings up the observability
endpoints, starts supervising the proxy process, and keeps the desired
Caddyfile in sync with it until stopped.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/ganymede.yaml

  # Override the admin endpoint
  ganymede run --endpoint http://127.0.0.1:2019

  # Validate config without starting
  ganymede run --dry-run`,
	RunE: runControlPlane,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.endpoint, "endpoint", "", "override admin endpoint URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runControlPlane(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.endpoint != "" {
		cfg.Admin.Endpoint = runFlags.endpoint
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	logger.Install()

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	steps := cli.NewSteps(os.Stdout)
	fmt.Printf("Ganymede v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	steps.OK("Configuration loaded")

	mgr, err := manager.New(cfg, logger.Slog())
	if err != nil {
		return err
	}
	mgr.SetVersionInfo(versionInfo())

	if err := steps.Do("Control plane started", func() error {
		return mgr.Start(context.Background())
	}); err != nil {
		mgr.Close()
		return cli.NewCommandError("run", err)
	}

	printEndpoints(steps, cfg, mgr)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for a shutdown signal or a fatal component error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-mgr.Done():
		fmt.Println()
		steps.Fail("Control plane failed", err)
		stopManager(mgr)
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		if err := stopManager(mgr); err != nil {
			return cli.NewCommandError("run", err)
		}
		steps.OK("Control plane stopped")
		return nil
	}
}

func stopManager(mgr *manager.Manager) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	err := mgr.Stop(ctx)
	if cerr := mgr.Close(); err == nil {
		err = cerr
	}
	return err
}

func printEndpoints(steps *cli.Steps, cfg *config.Config, mgr *manager.Manager) {
	steps.Note("State: %s", mgr.State())
	steps.OK("Admin endpoint: %s", cfg.Admin.Endpoint)
	if cfg.Telemetry.Metrics.Enabled {
		steps.OK("Metrics: http://%s%s", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	if cfg.Telemetry.Health.Enabled {
		steps.OK("Health: http://%s%s", cfg.Telemetry.Health.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Watch.Enabled {
		steps.OK("Watching: %s", cfg.Watch.Path)
	}
}
