// Package telemetry provides observability for Mercator Ganymede.
//
// # Overview
//
// The telemetry package groups structured logging, Prometheus metrics,
// lifecycle event recording, and health check endpoints. Each concern
// lives in its own subpackage and is wired together by the manager.
//
// # Components
//
//   - logging: Structured logging with secret redaction
//   - metrics: Prometheus metrics collection
//   - events: Typed lifecycle event recording with pluggable sinks
//   - health: Liveness and readiness endpoints for the control plane
//
// # Usage
//
//	// Install logging
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil { ... }
//	logger.Install()
//
//	// Record metrics
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordSync("success", elapsed)
//
//	// Emit events
//	emitter := events.NewEmitter(events.NewLogSink(nil))
//	emitter.Emit(events.SyncApplied{Duration: elapsed})
//
// The subpackages do not depend on each other; components receive the
// pieces they need by injection.
package telemetry
