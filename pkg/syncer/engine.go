package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/storage"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Engine pushes the desired configuration to the running process, captures
// rollback snapshots, and reports sync outcomes to the lifecycle machine.
type Engine struct {
	config  *config.SyncConfig
	api     *admin.API
	adapter Adapter
	store   *caddyfile.Store
	machine *lifecycle.Machine
	logger  *slog.Logger

	// Optional wiring, attached before the engine is shared.
	history *storage.HistoryStore
	metrics *metrics.Collector
	emitter *events.Emitter

	// syncMu serializes Sync, Rollback, and ApplyRuntimePatch so at most
	// one mutation of the running process is in flight.
	syncMu sync.Mutex

	// driftMu serializes CheckDrift independently, so a slow sync never
	// delays an observational read.
	driftMu sync.Mutex

	// stateMu guards the bookkeeping below. Accessors take only this lock
	// and never block on in-flight admin I/O.
	stateMu       sync.Mutex
	lastKnownGood json.RawMessage
	syncCount     int
	lastSyncTime  time.Time
	lastSyncErr   error
}

// Options control a single Sync call.
type Options struct {
	// Backup captures the current runtime configuration before pushing so
	// a successful sync can commit it as the rollback target.
	Backup bool

	// Force skips the validation gate. The text is still adapted to
	// produce the JSON payload, so an adapt failure surfaces as an adapt
	// error rather than a validation rejection.
	Force bool

	// HistorySource labels the version recorded on success. Empty means
	// the sync source; a rollback that re-pushes an old version labels
	// it as such.
	HistorySource string
}

// Stats is a point-in-time snapshot of the engine's bookkeeping.
type Stats struct {
	// SyncCount is the number of successful syncs since construction.
	SyncCount int

	// LastSyncTime is when the most recent successful sync finished.
	// Zero until the first success.
	LastSyncTime time.Time

	// LastSyncError is the error from the most recent Sync call, nil
	// after a success.
	LastSyncError error

	// HasRollback reports whether a rollback snapshot exists.
	HasRollback bool
}

// NewEngine creates a sync engine. The adapter defaults to the admin API's
// adapt endpoint; SetAdapter replaces it.
func NewEngine(cfg *config.SyncConfig, api *admin.API, store *caddyfile.Store, machine *lifecycle.Machine, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if api == nil {
		return nil, fmt.Errorf("admin API cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if machine == nil {
		return nil, fmt.Errorf("lifecycle machine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		config:  cfg,
		api:     api,
		adapter: NewAdminAdapter(api),
		store:   store,
		machine: machine,
		logger:  logger.With("component", "syncer"),
	}, nil
}

// SetAdapter replaces the adaptation backend. Call during wiring, before the
// engine is shared.
func (e *Engine) SetAdapter(a Adapter) {
	if a != nil {
		e.adapter = a
	}
}

// SetHistory attaches a version history store. Successful syncs record the
// pushed configuration; a failure to record is logged, never propagated.
func (e *Engine) SetHistory(h *storage.HistoryStore) {
	e.history = h
}

// SetTelemetry attaches the metrics collector and event emitter. Both are
// optional; a nil collector or emitter records nothing.
func (e *Engine) SetTelemetry(c *metrics.Collector, em *events.Emitter) {
	e.metrics = c
	e.emitter = em
}

// defaultOptions derives per-call defaults from the sync configuration.
func (e *Engine) defaultOptions() Options {
	return Options{
		Backup: e.config.Backup,
		Force:  !e.config.Validate,
	}
}

// Sync pushes the current configuration text to the running process:
//
//  1. With Backup, the current runtime configuration is fetched and held.
//  2. The text is adapted to JSON. Without Force the adapter doubles as the
//     validation gate and a rejection aborts with a ValidationError before
//     anything reaches the process.
//  3. The adapted document is loaded.
//  4. On success the held backup (or, when none was taken, a freshly
//     fetched runtime configuration) becomes the rollback target and
//     sync_success is reported to the lifecycle machine.
//
// On any failure sync_failure is reported instead and both the running
// process and the rollback target are left untouched. A nil opts uses the
// configured defaults. An empty store returns ErrNoConfig without touching
// anything.
func (e *Engine) Sync(ctx context.Context, opts *Options) error {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	o := e.defaultOptions()
	if opts != nil {
		o = *opts
	}

	cfg := e.store.Get()
	if cfg.Empty() {
		return ErrNoConfig
	}
	text := caddyfile.Serialize(cfg)

	start := time.Now()
	e.logger.Info("starting sync",
		"backup", o.Backup,
		"force", o.Force,
		"bytes", len(text),
	)

	var backup json.RawMessage
	if o.Backup {
		current, err := e.api.GetConfig(ctx, "")
		if err != nil {
			return e.syncFailed("backup", start, fmt.Errorf("fetching pre-sync backup: %w", err))
		}
		backup = current
	}

	doc, err := e.adapter.Adapt(ctx, text)
	if err != nil {
		if o.Force {
			return e.syncFailed("adapt", start, fmt.Errorf("adapting configuration: %w", err))
		}
		e.recordValidation(validationResult(err))
		if _, rejected := admin.IsHTTPError(err); rejected {
			return e.syncFailed("validate", start, &ValidationError{
				Reason: rejectionReason(err),
				Cause:  err,
			})
		}
		return e.syncFailed("validate", start, fmt.Errorf("validating configuration: %w", err))
	}
	if !o.Force {
		e.recordValidation("valid")
	}

	if err := e.api.LoadRaw(ctx, doc); err != nil {
		return e.syncFailed("load", start, fmt.Errorf("loading configuration: %w", err))
	}

	if backup == nil {
		fresh, err := e.api.GetConfig(ctx, "")
		if err != nil {
			e.logger.Warn("sync succeeded but rollback snapshot fetch failed, keeping previous snapshot",
				"error", err)
		} else {
			backup = fresh
		}
	}

	duration := time.Since(start)

	e.stateMu.Lock()
	if backup != nil {
		e.lastKnownGood = backup
	}
	e.syncCount++
	e.lastSyncTime = time.Now()
	e.lastSyncErr = nil
	e.stateMu.Unlock()

	e.fire(lifecycle.EventSyncSuccess)

	versionID := ""
	if e.history != nil {
		source := o.HistorySource
		if source == "" {
			source = storage.VersionSourceSync
		}
		if v, err := e.history.Record(ctx, cfg, source); err != nil {
			e.logger.Warn("failed to record configuration version", "error", err)
		} else {
			versionID = v.ID
			if e.metrics != nil {
				e.metrics.RecordVersionRecorded(source)
			}
		}
	}

	e.recordSync("success", duration)
	e.emitter.Emit(events.SyncApplied{VersionID: versionID, Duration: duration})

	e.logger.Info("sync complete",
		"duration_ms", duration.Milliseconds(),
		"version", versionID,
	)
	return nil
}

// syncFailed reports a failed sync: lifecycle event, metrics, telemetry
// event, and log record. It returns err for the caller to propagate.
func (e *Engine) syncFailed(stage string, start time.Time, err error) error {
	e.stateMu.Lock()
	e.lastSyncErr = err
	e.stateMu.Unlock()

	e.fire(lifecycle.EventSyncFailure)

	result := "error"
	if _, ok := IsValidationError(err); ok {
		result = "rejected"
	}
	e.recordSync(result, time.Since(start))
	e.emitter.Emit(events.SyncFailed{Stage: stage, Reason: err.Error()})

	e.logger.Error("sync failed",
		"stage", stage,
		"error", err,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// Rollback loads the rollback snapshot captured by the most recent
// successful sync. The snapshot itself is not altered: rolling back does not
// create a new checkpoint, and the lifecycle machine is not involved. When
// no snapshot exists the call fails with ErrNoRollback.
func (e *Engine) Rollback(ctx context.Context) error {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	e.stateMu.Lock()
	snapshot := e.lastKnownGood
	e.stateMu.Unlock()

	if snapshot == nil {
		e.recordRollback("unavailable")
		return ErrNoRollback
	}

	e.logger.Info("rolling back to last known good configuration", "bytes", len(snapshot))
	if err := e.api.LoadRaw(ctx, snapshot); err != nil {
		e.recordRollback("error")
		return fmt.Errorf("loading rollback snapshot: %w", err)
	}

	e.recordRollback("success")
	e.emitter.Emit(events.RollbackApplied{})
	e.logger.Info("rollback complete")
	return nil
}

// ApplyRuntimePatch writes a JSON fragment directly into the running process
// at path, replacing the whole tree when path is empty. The configuration
// store, the rollback snapshot, and the lifecycle machine never observe the
// change; the next sync overwrites it.
func (e *Engine) ApplyRuntimePatch(ctx context.Context, path string, fragment []byte) error {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	if !json.Valid(fragment) {
		return fmt.Errorf("runtime patch for %q is not valid JSON", path)
	}

	e.logger.Info("applying runtime patch", "path", path, "bytes", len(fragment))
	return e.api.PostConfig(ctx, path, fragment)
}

// GetRuntimeConfig fetches the configuration the process is actually
// running. The document goes to the caller and nowhere else; runtime JSON is
// never written back into the configuration store.
func (e *Engine) GetRuntimeConfig(ctx context.Context) (json.RawMessage, error) {
	return e.api.GetConfig(ctx, "")
}

// LastKnownGood returns a copy of the rollback snapshot, or nil when no
// successful sync has captured one.
func (e *Engine) LastKnownGood() json.RawMessage {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.lastKnownGood == nil {
		return nil
	}
	out := make(json.RawMessage, len(e.lastKnownGood))
	copy(out, e.lastKnownGood)
	return out
}

// Stats returns the engine's sync bookkeeping.
func (e *Engine) Stats() Stats {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return Stats{
		SyncCount:     e.syncCount,
		LastSyncTime:  e.lastSyncTime,
		LastSyncError: e.lastSyncErr,
		HasRollback:   e.lastKnownGood != nil,
	}
}

// fire reports a lifecycle event, absorbing rejections: the machine is the
// authority on which transitions are legal and the engine does not
// second-guess it.
func (e *Engine) fire(ev lifecycle.Event) {
	if _, err := e.machine.Fire(ev); err != nil {
		e.logger.Debug("lifecycle event not accepted",
			"event", string(ev),
			"error", err)
	}
}

func (e *Engine) recordSync(result string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordSync(result, d)
	}
}

func (e *Engine) recordValidation(result string) {
	if e.metrics != nil {
		e.metrics.RecordValidation(result)
	}
}

func (e *Engine) recordDriftCheck(result string, paths int) {
	if e.metrics != nil {
		e.metrics.RecordDriftCheck(result, paths)
	}
}

func (e *Engine) recordRollback(result string) {
	if e.metrics != nil {
		e.metrics.RecordRollback(result)
	}
}

// rejectionReason extracts the adapter's rejection text: the response body
// for an admin-side rejection, the error text otherwise.
func rejectionReason(err error) string {
	if he, ok := admin.IsHTTPError(err); ok {
		if reason := strings.TrimSpace(string(he.Body)); reason != "" {
			return reason
		}
	}
	return err.Error()
}

// validationResult classifies a validation-gate failure: a rejection from
// the adapter means the text is invalid, anything else means the gate itself
// could not run.
func validationResult(err error) string {
	if _, ok := admin.IsHTTPError(err); ok {
		return "invalid"
	}
	return "error"
}
