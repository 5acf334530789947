// Package supervisor ties the proxy process's lifetime to the control
// plane, in one of two modes.
//
// # Overview
//
// In self mode the SelfSupervisor owns the process: Start renders the
// configuration store to disk, spawns the binary with that file and a
// pidfile, streams its output into the logger, and publishes its exit on
// the Exited channel. A pidfile naming a live PID from a previous run is
// adopted instead of spawning a second instance. Stop terminates the
// process, escalating from SIGTERM to SIGKILL after a grace period.
//
// In external mode the ExternalSupervisor observes a process owned by
// something else, such as systemd. It never spawns or kills the process;
// operator-supplied shell commands cover start, stop, restart, and status
// when configured.
//
// Both modes run the same health loop. Each probe maps the admin
// interface's answer to a process status: an answer means running, a
// refused connection means stopped, anything else means unknown. A status
// change into running fires health_ok into the lifecycle machine and, at
// most once, pushes the desired configuration; a change out of running
// fires health_fail. After a start or restart command the next probe runs
// on a short recheck delay instead of the full interval.
//
// # Usage
//
//	sup, err := supervisor.New(&cfg.Process, &cfg.Sync, api, store, machine, engine, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sup.SetTelemetry(collector, emitter)
//
//	if err := sup.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Stop(context.Background())
//
// A dead child is reported, never respawned; whoever owns the supervisor
// watches SelfSupervisor.Exited and decides what a child death means.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Start and Stop
// serialize on an internal mutex; Status reads the health loop's last
// observation without blocking on in-flight probes.
package supervisor
