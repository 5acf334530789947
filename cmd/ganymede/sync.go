package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/syncer"
)

var syncFlags struct {
	file  string
	force bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the desired configuration to the proxy",
	Long: `Push the desired Caddyfile configuration to the running proxy.

Without --file the last saved configuration is pushed. With --file the
given Caddyfile replaces the desired configuration first and is saved,
so it survives as the new desired state even if the push fails.

The push validates the text through the admin adapt endpoint before
loading it; --force skips that validation gate.

Examples:
  # Push the saved configuration
  ganymede sync

  # Replace the desired configuration and push it
  ganymede sync --file Caddyfile

  # Push without the validation gate
  ganymede sync --file Caddyfile --force`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVarP(&syncFlags.file, "file", "f", "", "Caddyfile to load as the desired configuration")
	syncCmd.Flags().BoolVar(&syncFlags.force, "force", false, "skip the validation gate")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := oneShot(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if syncFlags.file != "" {
		text, err := os.ReadFile(syncFlags.file)
		if err != nil {
			return cli.NewCommandError("sync", err)
		}
		mgr.SetCaddyfile(string(text))
	}

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), opTimeout)
	defer cancel()

	opts := &syncer.Options{Backup: cfg.Sync.Backup, Force: syncFlags.force}
	if err := mgr.Sync(ctx, opts); err != nil {
		return err
	}

	fmt.Println("✓ Configuration synced")
	return nil
}
