package admin

import (
	"context"

	"mercator-hq/ganymede/pkg/wire"
)

// HealthState classifies the outcome of a health probe.
type HealthState string

const (
	// HealthStateHealthy means GET /config/ answered 200.
	HealthStateHealthy HealthState = "healthy"

	// HealthStateUnreachable means the connection was refused, timed out,
	// or otherwise failed before an HTTP response arrived. The supervisor
	// maps this to a stopped process.
	HealthStateUnreachable HealthState = "unreachable"

	// HealthStateUnhealthy means the process answered, but with a non-200
	// status or a malformed response. The supervisor maps this to unknown.
	HealthStateUnhealthy HealthState = "unhealthy"
)

// Health is the result of a health probe.
type Health struct {
	// State classifies the outcome.
	State HealthState

	// Detail is a human-readable explanation for non-healthy states.
	Detail string
}

// Healthy reports whether the probe succeeded.
func (h Health) Healthy() bool {
	return h.State == HealthStateHealthy
}

// HealthCheck probes the process by fetching its configuration root.
// It never returns an error: every failure mode folds into the Health value
// so the supervisor's poll loop can run unconditionally.
func (a *API) HealthCheck(ctx context.Context) Health {
	_, err := a.GetConfig(ctx, "")
	switch {
	case err == nil:
		return Health{State: HealthStateHealthy}
	case wire.IsConnectError(err):
		return Health{State: HealthStateUnreachable, Detail: err.Error()}
	default:
		return Health{State: HealthStateUnhealthy, Detail: err.Error()}
	}
}
