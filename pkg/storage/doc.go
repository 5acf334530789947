// Package storage persists the desired configuration.
//
// # Overview
//
// Two stores live here. SnapshotStore keeps the current Config as a JSON
// file (the autosave target), moving the previous snapshot to a backup path
// on every save and writing through a temp file plus rename so a crash never
// leaves a torn snapshot. HistoryStore keeps an append-only version history
// in SQLite so operators can inspect and prune what was pushed over time.
//
// # Usage
//
//	snap := storage.NewSnapshotStore("/var/lib/ganymede/config.json",
//	    "/var/lib/ganymede/config.backup.json")
//	cfg, err := snap.Load() // nil, nil when no snapshot exists yet
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	hist, err := storage.NewHistoryStore(storage.DefaultHistoryConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hist.Close()
//	_, _ = hist.Record(ctx, cfg, storage.VersionSourceSync)
//
// # Thread Safety
//
// Both stores are safe for concurrent use.
package storage
