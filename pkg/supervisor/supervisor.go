package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Supervisor manages or observes the proxy process and feeds its health
// into the lifecycle machine. Both variants honor the same contract: a
// status change into running fires health_ok, a change out of running
// fires health_fail, and the desired configuration is pushed once when the
// process first becomes reachable.
type Supervisor interface {
	// Start begins supervision. In self mode the process is spawned, or
	// adopted when its pidfile names a live PID; in external mode only
	// health polling starts.
	Start(ctx context.Context) error

	// Stop ends supervision. In self mode the owned process is
	// terminated and the pidfile removed; in external mode the process
	// is left alone.
	Stop(ctx context.Context) error

	// Status returns the last observed process status.
	Status() Status

	// SetTelemetry attaches optional metrics and event emission.
	SetTelemetry(*metrics.Collector, *events.Emitter)
}

// New creates the supervisor variant selected by the process config.
func New(cfg *config.ProcessConfig, syncCfg *config.SyncConfig, api *admin.API, store *caddyfile.Store, machine *lifecycle.Machine, engine *syncer.Engine, logger *slog.Logger) (Supervisor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("process config cannot be nil")
	}
	switch cfg.Mode {
	case "self":
		return NewSelf(cfg, syncCfg, api, store, machine, engine, logger)
	case "", "external":
		return NewExternal(cfg, syncCfg, api, machine, engine, logger)
	default:
		return nil, fmt.Errorf("unknown process mode %q", cfg.Mode)
	}
}
