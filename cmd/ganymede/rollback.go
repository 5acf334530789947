package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/manager"
	"mercator-hq/ganymede/pkg/storage"
	"mercator-hq/ganymede/pkg/syncer"
)

var rollbackFlags struct {
	version string
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore a previously good configuration",
	Long: `Push a previously good configuration back to the proxy.

The primary rollback target is the runtime snapshot captured by the most
recent successful sync. That snapshot lives with the syncing process, so
when this invocation has not synced anything yet the command falls back
to the version history, re-pushing the configuration recorded before the
latest one. With --version a specific recorded version is pushed instead.

Unlike the snapshot path, a history rollback also replaces the desired
configuration, so the restored version survives as the new saved state.

Examples:
  # Restore the previous configuration
  ganymede rollback

  # Restore a specific recorded version
  ganymede rollback --version 3f8a1c2e`,
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().StringVar(&rollbackFlags.version, "version", "", "recorded version ID to restore")
}

func runRollback(cmd *cobra.Command, args []string) error {
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

	if rollbackFlags.version != "" {
		return rollbackToVersion(ctx, cfg, mgr, rollbackFlags.version)
	}

	switch err := mgr.Rollback(ctx); {
	case err == nil:
		fmt.Println("✓ Rolled back to last known good configuration")
		return nil
	case !errors.Is(err, syncer.ErrNoRollback):
		return err
	case !cfg.Storage.History.Enabled:
		return err
	}

	// No runtime snapshot in this process. Re-push the version recorded
	// before the latest one.
	versions, err := mgr.Versions(ctx, 2)
	if err != nil {
		return err
	}
	if len(versions) < 2 {
		return syncer.ErrNoRollback
	}
	return rollbackToVersion(ctx, cfg, mgr, versions[1].ID)
}

// rollbackToVersion replaces the desired configuration with a recorded
// version and syncs it to the proxy.
func rollbackToVersion(ctx context.Context, cfg *config.Config, mgr *manager.Manager, id string) error {
	version, err := mgr.Version(ctx, id)
	if err != nil {
		return err
	}
	if version == nil {
		return fmt.Errorf("version %q not found", id)
	}

	mgr.SetCaddyfile(version.Caddyfile)
	opts := &syncer.Options{
		Backup:        cfg.Sync.Backup,
		HistorySource: storage.VersionSourceRollback,
	}
	if err := mgr.Sync(ctx, opts); err != nil {
		return err
	}

	fmt.Printf("✓ Rolled back to version %s (recorded %s)\n", version.ID, version.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
