package events

import (
	"time"
)

// Kind identifies an event type. The set of kinds is closed; every kind
// has exactly one payload type.
type Kind string

// Event kinds.
const (
	// KindConfigSet is emitted when the desired config is replaced or amended.
	KindConfigSet Kind = "config_set"

	// KindConfigCleared is emitted when the desired config is cleared.
	KindConfigCleared Kind = "config_cleared"

	// KindSyncApplied is emitted when a sync pushes config successfully.
	KindSyncApplied Kind = "sync_applied"

	// KindSyncFailed is emitted when a sync attempt fails at any stage.
	KindSyncFailed Kind = "sync_failed"

	// KindDriftDetected is emitted when a drift audit finds differences.
	KindDriftDetected Kind = "drift_detected"

	// KindRollbackApplied is emitted when a rollback restores a backup.
	KindRollbackApplied Kind = "rollback_applied"

	// KindStateChanged is emitted on every accepted lifecycle transition.
	KindStateChanged Kind = "state_changed"

	// KindProcessStarted is emitted when the managed process is spawned.
	KindProcessStarted Kind = "process_started"

	// KindProcessExited is emitted when the managed process exits.
	KindProcessExited Kind = "process_exited"

	// KindHealthChanged is emitted when the observed process status moves.
	KindHealthChanged Kind = "health_changed"

	// KindCommandRun is emitted after an external lifecycle command runs.
	KindCommandRun Kind = "command_run"
)

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	switch k {
	case KindConfigSet, KindConfigCleared, KindSyncApplied, KindSyncFailed,
		KindDriftDetected, KindRollbackApplied, KindStateChanged,
		KindProcessStarted, KindProcessExited, KindHealthChanged,
		KindCommandRun:
		return true
	}
	return false
}

// Category returns the event category for k, grouping kinds by the
// component that emits them.
func (k Kind) Category() string {
	switch k {
	case KindConfigSet, KindConfigCleared:
		return "config"
	case KindSyncApplied, KindSyncFailed, KindDriftDetected, KindRollbackApplied:
		return "sync"
	case KindStateChanged:
		return "lifecycle"
	case KindProcessStarted, KindProcessExited, KindHealthChanged, KindCommandRun:
		return "process"
	}
	return "unknown"
}

// Payload is the typed body of an event. Implementations are the closed
// set of payload structs in this package.
type Payload interface {
	// EventKind returns the kind this payload belongs to.
	EventKind() Kind
}

// ConfigSet reports a desired config replacement or amendment.
type ConfigSet struct {
	// Sites is the number of site blocks after the change.
	Sites int `json:"sites"`

	// Fragments is the number of named fragments after the change.
	Fragments int `json:"fragments"`
}

// EventKind returns KindConfigSet.
func (ConfigSet) EventKind() Kind { return KindConfigSet }

// ConfigCleared reports the desired config being emptied.
type ConfigCleared struct{}

// EventKind returns KindConfigCleared.
func (ConfigCleared) EventKind() Kind { return KindConfigCleared }

// SyncApplied reports a successful config push.
type SyncApplied struct {
	// VersionID is the recorded history version, empty when history is off.
	VersionID string `json:"version_id,omitempty"`

	// Duration is how long the sync took.
	Duration time.Duration `json:"duration"`
}

// EventKind returns KindSyncApplied.
func (SyncApplied) EventKind() Kind { return KindSyncApplied }

// SyncFailed reports a failed sync attempt.
type SyncFailed struct {
	// Stage names the step that failed ("backup", "validate", "adapt",
	// "load").
	Stage string `json:"stage"`

	// Reason is the error text.
	Reason string `json:"reason"`
}

// EventKind returns KindSyncFailed.
func (SyncFailed) EventKind() Kind { return KindSyncFailed }

// DriftDetected reports differences between desired and runtime config.
type DriftDetected struct {
	// Paths is the number of differing config paths.
	Paths int `json:"paths"`
}

// EventKind returns KindDriftDetected.
func (DriftDetected) EventKind() Kind { return KindDriftDetected }

// RollbackApplied reports a restore of the last backup config.
type RollbackApplied struct {
	// VersionID is the recorded history version, empty when history is off.
	VersionID string `json:"version_id,omitempty"`
}

// EventKind returns KindRollbackApplied.
func (RollbackApplied) EventKind() Kind { return KindRollbackApplied }

// StateChanged reports an accepted lifecycle transition.
type StateChanged struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Event string `json:"event"`
}

// EventKind returns KindStateChanged.
func (StateChanged) EventKind() Kind { return KindStateChanged }

// ProcessStarted reports a spawn of the managed process.
type ProcessStarted struct {
	PID int `json:"pid"`
}

// EventKind returns KindProcessStarted.
func (ProcessStarted) EventKind() Kind { return KindProcessStarted }

// ProcessExited reports an exit of the managed process.
type ProcessExited struct {
	Code int `json:"code"`
}

// EventKind returns KindProcessExited.
func (ProcessExited) EventKind() Kind { return KindProcessExited }

// HealthChanged reports the observed process status moving.
type HealthChanged struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// EventKind returns KindHealthChanged.
func (HealthChanged) EventKind() Kind { return KindHealthChanged }

// CommandRun reports an external lifecycle command finishing.
type CommandRun struct {
	Action string `json:"action"`

	// ExitCode is the command's exit status, 0 on success.
	ExitCode int `json:"exit_code"`
}

// EventKind returns KindCommandRun.
func (CommandRun) EventKind() Kind { return KindCommandRun }

// Event is a stamped occurrence handed to sinks.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Time is when the event was emitted.
	Time time.Time `json:"time"`

	// Kind identifies the payload type.
	Kind Kind `json:"kind"`

	// Payload is the typed event body.
	Payload Payload `json:"payload"`
}

// Category returns the event's category, derived from its kind.
func (e Event) Category() string {
	return e.Kind.Category()
}
