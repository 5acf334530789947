package lifecycle

// State is one lifecycle state of the managed subsystem.
type State string

const (
	// StateInitializing is the zero state before boot determines whether a
	// configuration exists. No events are accepted in it.
	StateInitializing State = "initializing"

	// StateUnconfigured means no desired configuration is present.
	StateUnconfigured State = "unconfigured"

	// StateConfigured means a desired configuration exists but has not
	// been pushed successfully since it last changed.
	StateConfigured State = "configured"

	// StateSynced means the desired configuration was pushed successfully
	// and the process was healthy at last report.
	StateSynced State = "synced"

	// StateDegraded means a previously synced process failed a health
	// check.
	StateDegraded State = "degraded"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateInitializing, StateUnconfigured, StateConfigured, StateSynced, StateDegraded:
		return true
	}
	return false
}

// Event is one lifecycle event. The set is closed: components report these
// and nothing else.
type Event string

const (
	// EventConfigSet fires when the desired configuration is set or
	// replaced.
	EventConfigSet Event = "config_set"

	// EventConfigCleared fires when the desired configuration is removed.
	EventConfigCleared Event = "config_cleared"

	// EventSyncSuccess fires when a push to the process succeeds.
	EventSyncSuccess Event = "sync_success"

	// EventSyncFailure fires when a push fails at any step.
	EventSyncFailure Event = "sync_failure"

	// EventHealthOK fires when the health loop sees the process recover.
	EventHealthOK Event = "health_ok"

	// EventHealthFail fires when the health loop sees the process fail.
	EventHealthFail Event = "health_fail"
)

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	switch e {
	case EventConfigSet, EventConfigCleared, EventSyncSuccess, EventSyncFailure, EventHealthOK, EventHealthFail:
		return true
	}
	return false
}

// States lists all states, for exhaustive checks.
func States() []State {
	return []State{StateInitializing, StateUnconfigured, StateConfigured, StateSynced, StateDegraded}
}

// Events lists all events, for exhaustive checks.
func Events() []Event {
	return []Event{EventConfigSet, EventConfigCleared, EventSyncSuccess, EventSyncFailure, EventHealthOK, EventHealthFail}
}

// InitialState computes the boot state from whether a non-empty desired
// configuration was loaded from storage. The result is assigned, not
// transitioned into, so no observer fires for it.
func InitialState(hasConfig bool) State {
	if hasConfig {
		return StateConfigured
	}
	return StateUnconfigured
}
