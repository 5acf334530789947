package lifecycle

import (
	"log/slog"
	"sync"
)

// transitions is the complete transition table. Any (state, event) pair not
// present is invalid and leaves the state unchanged.
var transitions = map[State]map[Event]State{
	StateUnconfigured: {
		EventConfigSet: StateConfigured,
	},
	StateConfigured: {
		EventSyncSuccess:   StateSynced,
		EventSyncFailure:   StateConfigured,
		EventConfigCleared: StateUnconfigured,
		EventConfigSet:     StateConfigured,
	},
	StateSynced: {
		EventConfigSet:   StateConfigured,
		EventHealthFail:  StateDegraded,
		EventSyncSuccess: StateSynced,
	},
	StateDegraded: {
		EventHealthOK:    StateSynced,
		EventSyncSuccess: StateSynced,
		EventSyncFailure: StateDegraded,
		EventConfigSet:   StateConfigured,
	},
}

// Observer receives every accepted transition, including self-transitions.
type Observer func(from, to State, event Event)

// Machine holds the current lifecycle state and applies events against the
// transition table.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []Observer
	logger    *slog.Logger
}

// NewMachine returns a machine starting in the given state. Use
// InitialState to compute the boot state; StateInitializing is the zero
// value for a machine whose boot has not completed.
func NewMachine(initial State) *Machine {
	if initial == "" {
		initial = StateInitializing
	}
	return &Machine{
		state:  initial,
		logger: slog.Default().With("component", "lifecycle"),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the subsystem is fully synced.
func (m *Machine) Ready() bool {
	return m.State() == StateSynced
}

// ConfiguredOrBetter reports whether a desired configuration exists,
// regardless of sync or health standing.
func (m *Machine) ConfiguredOrBetter() bool {
	switch m.State() {
	case StateConfigured, StateSynced, StateDegraded:
		return true
	}
	return false
}

// Observe registers an observer for subsequent transitions. Observers run
// on the goroutine that fired the event, after the state has moved.
func (m *Machine) Observe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Fire applies one event. On an accepted transition it returns the new
// state and reports (from, to, event) to every observer; on a rejected one
// it returns the unchanged state and a *TransitionError.
func (m *Machine) Fire(event Event) (State, error) {
	m.mu.Lock()
	from := m.state
	to, ok := transitions[from][event]
	if !ok {
		m.mu.Unlock()
		return from, &TransitionError{From: from, Event: event}
	}
	m.state = to
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	m.logger.Debug("lifecycle transition",
		"from", string(from),
		"to", string(to),
		"event", string(event))

	for _, fn := range observers {
		fn(from, to, event)
	}
	return to, nil
}
