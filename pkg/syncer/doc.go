// Package syncer pushes desired configuration to the running process,
// detects divergence between desired and actual state, and exposes a safe
// rollback path.
//
// # Overview
//
// The Engine is the only component that writes the running process's
// configuration. A Sync adapts the configuration store's text to the
// process's JSON form, validates it through the same adapter, loads it, and
// on success captures the previous runtime configuration as the rollback
// target. CheckDrift compares what the process is running against what the
// store says it should run, and is purely observational. Rollback loads the
// captured snapshot verbatim. ApplyRuntimePatch is the escape hatch for
// ephemeral runtime-only changes that should not survive the next sync.
//
// Sync outcomes feed the lifecycle machine as sync_success and sync_failure
// events; the engine never manipulates lifecycle state directly.
//
// # Usage
//
//	engine, err := syncer.NewEngine(&cfg.Sync, api, store, machine, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine.SetHistory(history)
//	engine.SetTelemetry(collector, emitter)
//
//	if err := engine.Sync(ctx, nil); err != nil {
//	    var ve *syncer.ValidationError
//	    if errors.As(err, &ve) {
//	        log.Printf("configuration rejected: %s", ve.Reason)
//	    }
//	}
//
//	report, err := engine.CheckDrift(ctx)
//	if err == nil && !report.InSync() {
//	    log.Printf("drifted keys: %v", report.Changed)
//	}
//
// # Failure Semantics
//
// A failed sync leaves the running process, the configuration store, and the
// rollback snapshot exactly as they were; retrying is the caller's decision.
// A validation rejection surfaces as *ValidationError carrying the adapter's
// reason verbatim. Rollback without a captured snapshot fails with
// ErrNoRollback. The engine never retries anything internally.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Sync, Rollback, and
// ApplyRuntimePatch serialize on one mutex so at most one mutation of the
// running process is in flight; CheckDrift serializes on its own, so a slow
// sync never delays drift observation.
package syncer
