// Package manager is the composition root: it wires the admin client,
// configuration store, sync engine, lifecycle machine, supervisor, storage,
// and telemetry into one controllable unit.
//
// # Overview
//
// New builds everything from a validated config.Config. The desired
// configuration boots from the autosave snapshot, which also decides the
// lifecycle machine's initial state. Start brings up the background pieces:
// observability listeners, the process supervisor with its health loop,
// cron schedules for drift audits and history pruning, and the optional
// source file watcher. Stop shuts them down in reverse order; Close
// releases the storage handles afterwards.
//
// All mutations of the desired configuration go through Manager methods
// such as SetSite and RemoveFragment. Each one autosaves the new snapshot
// and feeds config_set or config_cleared into the lifecycle machine, so a
// caller holding the underlying store directly would bypass bookkeeping
// the rest of the system depends on.
//
// Restart rebuilds the store from the autosave snapshot and then, in
// dependency order, the sync engine and the supervisor. Components that do
// not depend on the store, the lifecycle machine and the listeners among
// them, keep running through a restart.
//
// # Usage
//
//	mgr, err := manager.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop(context.Background())
//
//	mgr.SetSite("example.com", "reverse_proxy localhost:8080")
//	if err := mgr.Sync(ctx, nil); err != nil {
//	    log.Printf("sync failed: %v", err)
//	}
//
// A program embedding the manager should also drain Done; a received
// error means the managed process died and the control plane should be
// restarted or shut down.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Mutations and Restart
// serialize on an internal mutex; read paths take the same mutex only long
// enough to snapshot component pointers, so a slow sync does not block a
// concurrent status read.
package manager
