package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/storage"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/wire"
)

var validateFlags struct {
	file   string
	bin    string
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a Caddyfile without touching the proxy",
	Long: `Check that a Caddyfile adapts to a valid JSON configuration.

The text is adapted through the admin endpoint of the running proxy,
which parses it without loading it. When the admin endpoint is down the
command falls back to running the proxy binary's adapt as a subprocess,
so validation also works offline.

Without --file the last saved configuration is validated.

Examples:
  # Validate a Caddyfile
  ganymede validate --file Caddyfile

  # Validate the saved configuration
  ganymede validate

  # Validate offline against a specific binary
  ganymede validate --file Caddyfile --bin /usr/local/bin/caddy

  # Print the adapted JSON
  ganymede validate --file Caddyfile --output json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "Caddyfile to validate")
	validateCmd.Flags().StringVar(&validateFlags.bin, "bin", "", "proxy binary for offline validation")
	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format (text, json)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := quietLogger(cfg); err != nil {
		return err
	}

	text, err := validationText(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), opTimeout)
	defer cancel()

	adapted, err := adaptWithFallback(ctx, cfg, text)
	if err != nil {
		return classifyAdaptError(err)
	}

	if format == cli.FormatJSON {
		fmt.Println(string(adapted))
		return nil
	}
	fmt.Println("✓ Caddyfile is valid")
	return nil
}

// validationText resolves what to validate: the --file contents, or the
// last saved configuration.
func validationText(cfg *config.Config) ([]byte, error) {
	if validateFlags.file != "" {
		text, err := os.ReadFile(validateFlags.file)
		if err != nil {
			return nil, cli.NewCommandError("validate", err)
		}
		return text, nil
	}

	snap, err := storage.NewSnapshotStore(cfg.Storage.SnapshotPath, cfg.Storage.BackupPath).Load()
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Empty() {
		return nil, fmt.Errorf("nothing to validate: no --file given and no saved configuration")
	}
	return caddyfile.Serialize(snap), nil
}

// adaptWithFallback adapts through the admin endpoint, falling back to
// the proxy binary when the endpoint is unreachable.
func adaptWithFallback(ctx context.Context, cfg *config.Config, text []byte) ([]byte, error) {
	var opts []wire.Option
	if cfg.Admin.Timeout > 0 {
		opts = append(opts, wire.WithTimeout(cfg.Admin.Timeout))
	}
	if cfg.Admin.OriginHost != "" {
		opts = append(opts, wire.WithHost(cfg.Admin.OriginHost))
	}
	client, err := wire.NewClient(cfg.Admin.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("admin endpoint: %w", err)
	}

	adapted, err := syncer.NewAdminAdapter(admin.New(client)).Adapt(ctx, text)
	if err == nil || !wire.IsConnectError(err) {
		return adapted, err
	}

	bin := validateFlags.bin
	if bin == "" {
		bin = cfg.Process.Bin
	}
	if bin == "" {
		return nil, fmt.Errorf("admin endpoint unreachable and no proxy binary configured: %w", err)
	}

	slog.Debug("admin endpoint unreachable, adapting via binary", "bin", bin)
	return syncer.NewBinAdapter(bin, slog.Default()).Adapt(ctx, text)
}

// classifyAdaptError separates rejections of the text from failures to
// run the check at all. An HTTP error from the adapt endpoint and a
// non-zero adapt subprocess both mean the text was judged and refused;
// everything else means no judgement was possible.
func classifyAdaptError(err error) error {
	if he, ok := admin.IsHTTPError(err); ok {
		return &syncer.ValidationError{
			Reason: strings.TrimSpace(string(he.Body)),
			Cause:  err,
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &syncer.ValidationError{Cause: err}
	}
	return err
}
