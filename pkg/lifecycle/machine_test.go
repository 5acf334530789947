package lifecycle

import (
	"errors"
	"testing"
)

// legalTransitions mirrors the intended table independently of the
// implementation so the totality test catches a table edit on either side.
var legalTransitions = map[State]map[Event]State{
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

// TestMachine_Totality drives every (state, event) pair: listed pairs must
// land exactly where the table says, unlisted pairs must be rejected with
// the state unchanged.
func TestMachine_Totality(t *testing.T) {
	for _, state := range States() {
		for _, event := range Events() {
			m := NewMachine(state)
			want, legal := legalTransitions[state][event]

			got, err := m.Fire(event)
			if legal {
				if err != nil {
					t.Errorf("(%s, %s): unexpected error %v", state, event, err)
					continue
				}
				if got != want {
					t.Errorf("(%s, %s) = %s, want %s", state, event, got, want)
				}
				if m.State() != want {
					t.Errorf("(%s, %s): State() = %s, want %s", state, event, m.State(), want)
				}
				continue
			}

			if err == nil {
				t.Errorf("(%s, %s): expected rejection, got transition to %s", state, event, got)
				continue
			}
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Errorf("(%s, %s): error type = %T, want *TransitionError", state, event, err)
			}
			if got != state || m.State() != state {
				t.Errorf("(%s, %s): state moved to %s on rejected event", state, event, m.State())
			}
		}
	}
}

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine(StateUnconfigured)

	steps := []struct {
		event Event
		want  State
	}{
		{EventConfigSet, StateConfigured},
		{EventSyncSuccess, StateSynced},
		{EventHealthFail, StateDegraded},
		{EventHealthOK, StateSynced},
		{EventConfigSet, StateConfigured},
		{EventConfigCleared, StateUnconfigured},
	}
	for _, step := range steps {
		got, err := m.Fire(step.event)
		if err != nil {
			t.Fatalf("Fire(%s) from %s: %v", step.event, m.State(), err)
		}
		if got != step.want {
			t.Fatalf("Fire(%s) = %s, want %s", step.event, got, step.want)
		}
	}
}

func TestMachine_SyncFailureKeepsConfiguration(t *testing.T) {
	m := NewMachine(StateConfigured)

	got, err := m.Fire(EventSyncFailure)
	if err != nil {
		t.Fatalf("Fire(sync_failure): %v", err)
	}
	if got != StateConfigured {
		t.Errorf("state after failed sync = %s, want configured", got)
	}
}

func TestMachine_Observers(t *testing.T) {
	m := NewMachine(StateUnconfigured)

	type seen struct {
		from, to State
		event    Event
	}
	var calls []seen
	m.Observe(func(from, to State, event Event) {
		calls = append(calls, seen{from, to, event})
	})

	if _, err := m.Fire(EventConfigSet); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	// Self-transitions are reported too.
	if _, err := m.Fire(EventConfigSet); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	// Rejected events are not.
	if _, err := m.Fire(EventHealthOK); err == nil {
		t.Fatal("expected rejection")
	}

	if len(calls) != 2 {
		t.Fatalf("observer calls = %d, want 2", len(calls))
	}
	if calls[0] != (seen{StateUnconfigured, StateConfigured, EventConfigSet}) {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[1] != (seen{StateConfigured, StateConfigured, EventConfigSet}) {
		t.Errorf("second call = %+v", calls[1])
	}
}

func TestMachine_Predicates(t *testing.T) {
	tests := []struct {
		state              State
		ready              bool
		configuredOrBetter bool
	}{
		{StateInitializing, false, false},
		{StateUnconfigured, false, false},
		{StateConfigured, false, true},
		{StateSynced, true, true},
		{StateDegraded, false, true},
	}

	for _, tt := range tests {
		m := NewMachine(tt.state)
		if m.Ready() != tt.ready {
			t.Errorf("%s: Ready() = %v, want %v", tt.state, m.Ready(), tt.ready)
		}
		if m.ConfiguredOrBetter() != tt.configuredOrBetter {
			t.Errorf("%s: ConfiguredOrBetter() = %v, want %v", tt.state, m.ConfiguredOrBetter(), tt.configuredOrBetter)
		}
	}
}

func TestInitialState(t *testing.T) {
	if InitialState(true) != StateConfigured {
		t.Error("InitialState(true) != configured")
	}
	if InitialState(false) != StateUnconfigured {
		t.Error("InitialState(false) != unconfigured")
	}
}

func TestNewMachine_ZeroValue(t *testing.T) {
	m := NewMachine("")
	if m.State() != StateInitializing {
		t.Errorf("state = %s, want initializing", m.State())
	}
	// Initializing accepts nothing; boot assigns the real state.
	if _, err := m.Fire(EventConfigSet); err == nil {
		t.Error("initializing state accepted an event")
	}
}
