// Package lifecycle implements the state machine governing the managed
// configuration subsystem.
//
// # Overview
//
// The subsystem moves through five states: initializing (before boot
// completes), unconfigured, configured, synced, and degraded. Transitions
// are driven by a closed set of events reported by the sync engine
// (SyncSuccess, SyncFailure), the configuration layer (ConfigSet,
// ConfigCleared), and the process supervisor's health loop (HealthOK,
// HealthFail). The transition table is total and explicit: any pair it does
// not list is rejected with *TransitionError and the state does not move.
//
// The initial state is computed at boot rather than transitioned into:
// Configured when a persisted non-empty configuration was loaded,
// Unconfigured otherwise.
//
// A failed sync keeps the machine in Configured (or Degraded) instead of
// regressing to Unconfigured, so the operator's intended configuration is
// never silently discarded.
//
// # Thread Safety
//
// Machine is safe for concurrent use. Exactly one transition is in flight
// at a time; observers run on the transitioning goroutine after the state
// has moved, and every accepted transition is reported, none silently.
package lifecycle
