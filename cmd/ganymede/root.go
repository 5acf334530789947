package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/manager"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

// opTimeout bounds one-shot commands (sync, drift, rollback, validate,
// status) end to end. Individual admin requests are additionally bounded
// by the configured admin timeout.
const opTimeout = 30 * time.Second

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - Caddyfile control plane for Caddy",
	Long: `Ganymede is a control plane that keeps a Caddy reverse proxy in sync
with a declared Caddyfile configuration.

It owns the desired configuration as structured text and drives the proxy
through its admin API, providing:
  - Caddyfile assembly from global options, snippets, and site blocks
  - Validated sync (adapt, then load) against the admin endpoint
  - Drift detection between desired and running configuration
  - Rollback to the last known good configuration
  - Optional supervision of a self-managed proxy process

For more information, visit: https://github.com/mercator-hq/ganymede`,
	Version: Version,

	// Errors are printed once by Execute, with the mapped exit code.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code mapped from the
// command's error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ganymede.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the file behind --config. When the flag was left at its
// default and no file exists there, built-in defaults apply so the tool
// works against a locally running proxy without any setup.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		return config.NewDefault(), nil
	}
	return nil, err
}

// newLogger builds a logger from the telemetry section. The verbose flag
// forces debug level regardless of configuration.
func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	lc := logging.Config{
		Level:         cfg.Telemetry.Logging.Level,
		Format:        cfg.Telemetry.Logging.Format,
		AddSource:     cfg.Telemetry.Logging.AddSource,
		RedactSecrets: cfg.Telemetry.Logging.RedactSecrets,
		Writer:        w,
	}
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(lc)
}

// quietLogger installs a stderr logger for one-shot commands so stdout
// stays clean for command output. Warn level, debug with --verbose.
func quietLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.Config{
		Level:         "warn",
		Format:        "text",
		RedactSecrets: cfg.Telemetry.Logging.RedactSecrets,
		Writer:        os.Stderr,
	}
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	logger.Install()
	return logger, nil
}

// oneShot builds an unstarted Manager for a single command invocation.
// No listeners come up and no supervisor loop runs; the caller gets the
// stores, engine, and admin client wired exactly as run would wire them.
func oneShot(cfg *config.Config) (*manager.Manager, error) {
	logger, err := quietLogger(cfg)
	if err != nil {
		return nil, err
	}
	return manager.New(cfg, logger.Slog())
}
