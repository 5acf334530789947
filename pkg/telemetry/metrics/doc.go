// Package metrics provides Prometheus metrics collection for Mercator Ganymede.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring config
// synchronization, the managed proxy process, admin API traffic, lifecycle
// state, and storage activity. Metric updates are cheap enough to record
// from any component without batching.
//
// # Metrics Categories
//
//   - Sync Metrics: Sync count, duration, validations, drift audits, rollbacks
//   - Process Metrics: Health probes, availability, spawns, exits, commands
//   - Admin Metrics: Admin API request count, duration, and error classes
//   - Lifecycle Metrics: Current state and accepted transitions
//   - Storage Metrics: Snapshot autosaves, history appends, prunes
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(config, registry)
//
//	// Record sync metrics
//	collector.RecordSync("success", 120*time.Millisecond)
//	collector.RecordDriftCheck("drift", 3)
//
//	// Record process metrics
//	collector.RecordHealthCheck("healthy")
//	collector.UpdateProcessUp(true)
//
//	// Record admin metrics
//	collector.RecordAdminRequest("POST", "/load", 200, 45*time.Millisecond)
//
// # Prometheus Endpoint
//
// All metrics are exposed on the /metrics endpoint in standard Prometheus format:
//
//	# HELP mercator_ganymede_syncs_total Total number of config sync attempts
//	# TYPE mercator_ganymede_syncs_total counter
//	mercator_ganymede_syncs_total{result="success"} 42
//
// # Cardinality Management
//
// Every label set is closed except admin request paths, which callers
// control. The collector caps unique admin paths and aggregates the
// overflow into "other".
package metrics
