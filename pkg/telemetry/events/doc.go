// Package events records lifecycle events emitted by Ganymede components.
//
// # Overview
//
// Components report notable occurrences (config changes, sync outcomes,
// process state changes, lifecycle transitions) as typed events. An
// Emitter stamps each event with an id and timestamp and hands it to a
// Sink. Emission is fire-and-forget: a failing sink is logged and never
// surfaces to the emitting component.
//
// # Event Kinds
//
// The set of event kinds is closed. Each kind has a typed payload
// struct; there are no free-form event maps. Adding a kind means adding
// a payload type and a constant, nothing else accepts arbitrary names.
//
// # Usage
//
//	sink, err := events.NewSQLiteSink(cfg.Path)
//	if err != nil { ... }
//	emitter := events.NewEmitter(sink)
//
//	emitter.Emit(events.SyncApplied{VersionID: id, Duration: elapsed})
//	emitter.Emit(events.HealthChanged{Previous: "stopped", Current: "running"})
//
// # Sinks
//
//   - LogSink writes events to the structured logger.
//   - SQLiteSink appends events to a SQLite table.
//   - MemorySink retains events in memory for tests.
//
// # Thread Safety
//
// Emitter and all provided sinks are safe for concurrent use.
package events
