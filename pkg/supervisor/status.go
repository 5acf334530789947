package supervisor

import "mercator-hq/ganymede/pkg/admin"

// Status is the last observed state of the managed process.
type Status string

const (
	// StatusUnknown means no probe has completed yet, or the last probe
	// reached something that did not behave like the admin interface.
	StatusUnknown Status = "unknown"

	// StatusStopped means probes cannot connect to the process at all.
	StatusStopped Status = "stopped"

	// StatusRunning means the admin interface answered the last probe.
	StatusRunning Status = "running"
)

// String returns the status as its wire form.
func (s Status) String() string {
	return string(s)
}

// statusFromHealth maps a probe outcome to a process status. A refused
// connection proves absence, a bad answer proves neither absence nor
// liveness.
func statusFromHealth(h admin.Health) Status {
	switch h.State {
	case admin.HealthStateHealthy:
		return StatusRunning
	case admin.HealthStateUnreachable:
		return StatusStopped
	default:
		return StatusUnknown
	}
}
