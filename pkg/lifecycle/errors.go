package lifecycle

import "fmt"

// TransitionError reports an event that is not legal in the current state.
// The state is unchanged when it is returned.
type TransitionError struct {
	// From is the state the machine was in.
	From State

	// Event is the rejected event.
	Event Event
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid in state %q", e.Event, e.From)
}
