package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/storage"
	"mercator-hq/ganymede/pkg/supervisor"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/wire"
)

// Manager is the composition root. It owns every component, boots the
// desired configuration from the autosave snapshot, and is the surface both
// the CLI and embedding programs drive. All mutations of the desired
// configuration go through the manager so that autosave and lifecycle
// bookkeeping never miss one.
type Manager struct {
	config *config.Config
	logger *slog.Logger

	// baseLogger is the untagged logger components derive theirs from.
	baseLogger *slog.Logger

	version health.VersionInfo

	api       *admin.API
	snapshots *storage.SnapshotStore
	history   *storage.HistoryStore
	registry  *prometheus.Registry
	collector *metrics.Collector
	emitter   *events.Emitter
	eventsDB  *events.SQLiteSink
	checker   *health.Checker
	machine   *lifecycle.Machine

	ops     *opsServer
	audit   *auditScheduler
	watcher *sourceWatcher

	fatalCh chan error

	// mu also guards the rebuildable trio below; Restart swaps them.
	mu        sync.Mutex
	store     *caddyfile.Store
	engine    *syncer.Engine
	sup       supervisor.Supervisor
	childStop chan struct{}
	isRunning bool
}

// New wires a manager from configuration. The autosave snapshot is loaded
// here so the lifecycle machine starts in the right state; background
// components do not run until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []wire.Option
	if cfg.Admin.Timeout > 0 {
		opts = append(opts, wire.WithTimeout(cfg.Admin.Timeout))
	}
	if cfg.Admin.OriginHost != "" {
		opts = append(opts, wire.WithHost(cfg.Admin.OriginHost))
	}
	client, err := wire.NewClient(cfg.Admin.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("admin endpoint: %w", err)
	}
	api := admin.New(client)

	snapshots := storage.NewSnapshotStore(cfg.Storage.SnapshotPath, cfg.Storage.BackupPath)
	snap, err := snapshots.Load()
	if err != nil {
		// An unreadable snapshot must not keep the control plane down;
		// it boots unconfigured and the operator decides.
		logger.Warn("autosave snapshot unreadable, booting unconfigured", "error", err)
		snap = nil
	}
	hasConfig := snap != nil && !snap.Empty()

	store := caddyfile.NewStore(snap)
	machine := lifecycle.NewMachine(lifecycle.InitialState(hasConfig))

	var (
		registry  *prometheus.Registry
		collector *metrics.Collector
	)
	if cfg.Telemetry.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
	}

	var (
		emitter  *events.Emitter
		eventsDB *events.SQLiteSink
	)
	if cfg.Telemetry.Events.Enabled {
		switch cfg.Telemetry.Events.Sink {
		case "sqlite":
			sink, err := events.NewSQLiteSink(cfg.Telemetry.Events.Path)
			if err != nil {
				return nil, fmt.Errorf("event sink: %w", err)
			}
			eventsDB = sink
			emitter = events.NewEmitter(sink)
		default:
			emitter = events.NewEmitter(events.NewLogSink(logger))
		}
	}

	var history *storage.HistoryStore
	if cfg.Storage.History.Enabled {
		history, err = storage.NewHistoryStore(&storage.HistoryConfig{
			Path:        cfg.Storage.History.Path,
			WALMode:     cfg.Storage.History.WALMode,
			BusyTimeout: cfg.Storage.History.BusyTimeout,
		})
		if err != nil {
			if eventsDB != nil {
				eventsDB.Close()
			}
			return nil, fmt.Errorf("version history: %w", err)
		}
	}

	closeStorage := func() {
		if history != nil {
			history.Close()
		}
		if eventsDB != nil {
			eventsDB.Close()
		}
	}

	engine, err := syncer.NewEngine(&cfg.Sync, api, store, machine, logger)
	if err != nil {
		closeStorage()
		return nil, err
	}
	engine.SetHistory(history)
	engine.SetTelemetry(collector, emitter)

	sup, err := supervisor.New(&cfg.Process, &cfg.Sync, api, store, machine, engine, logger)
	if err != nil {
		closeStorage()
		return nil, err
	}
	sup.SetTelemetry(collector, emitter)

	m := &Manager{
		config:     cfg,
		logger:     logger.With("component", "manager"),
		baseLogger: logger,
		api:        api,
		snapshots:  snapshots,
		history:    history,
		registry:   registry,
		collector:  collector,
		emitter:    emitter,
		eventsDB:   eventsDB,
		checker:    health.New(cfg.Telemetry.Health.CheckTimeout),
		machine:    machine,
		store:      store,
		engine:     engine,
		sup:        sup,
		fatalCh:    make(chan error, 1),
	}

	m.registerChecks()
	machine.Observe(m.onTransition)
	if collector != nil {
		collector.UpdateLifecycleState(string(machine.State()))
	}

	m.ops = newOpsServer(&cfg.Telemetry, collector, m.checker, &m.version, logger)

	m.audit, err = newAuditScheduler(m)
	if err != nil {
		closeStorage()
		return nil, err
	}

	return m, nil
}

// SetVersionInfo sets the build information served on the version endpoint.
// It must be called before Start.
func (m *Manager) SetVersionInfo(v health.VersionInfo) {
	m.version = v
}

// Start brings up the background components: observability listeners, the
// process supervisor, schedules, and the source watcher.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return fmt.Errorf("manager is already running")
	}

	m.logger.Info("starting control plane",
		"endpoint", m.config.Admin.Endpoint,
		"mode", m.config.Process.Mode,
		"state", string(m.machine.State()),
	)

	// A stopped fsnotify handle cannot be rearmed, so each start builds a
	// fresh watcher. Built first so a bad watch path starts nothing.
	var watcher *sourceWatcher
	if m.config.Watch.Enabled {
		w, err := newSourceWatcher(&m.config.Watch, m.baseLogger)
		if err != nil {
			return fmt.Errorf("starting source watcher: %w", err)
		}
		watcher = w
	}

	if m.ops != nil {
		if err := m.ops.start(); err != nil {
			if watcher != nil {
				watcher.stop()
			}
			return err
		}
	}

	if err := m.sup.Start(ctx); err != nil {
		if m.ops != nil {
			m.ops.stop(context.Background())
		}
		if watcher != nil {
			watcher.stop()
		}
		return fmt.Errorf("starting supervisor: %w", err)
	}
	m.watchChildLocked()

	if m.audit != nil {
		m.audit.start()
	}

	if watcher != nil {
		m.watcher = watcher
		go func() {
			if err := watcher.watch(m.reloadSource); err != nil {
				m.logger.Error("source watcher failed", "error", err)
			}
		}()
	}

	m.isRunning = true
	return nil
}

// Stop shuts the background components down in reverse dependency order.
// Storage stays open so the manager can be started again; Close releases it.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	if m.childStop != nil {
		close(m.childStop)
		m.childStop = nil
	}
	sup := m.sup
	watcher := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	m.logger.Info("stopping control plane")

	var firstErr error
	if watcher != nil {
		if err := watcher.stop(); err != nil {
			m.logger.Warn("stopping source watcher", "error", err)
			firstErr = err
		}
	}
	if m.audit != nil {
		m.audit.stop()
	}
	if err := sup.Stop(ctx); err != nil {
		m.logger.Warn("stopping supervisor", "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("stopping supervisor: %w", err)
		}
	}
	if m.ops != nil {
		if err := m.ops.stop(ctx); err != nil {
			m.logger.Warn("stopping observability listeners", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Restart rebuilds the configuration store from the autosave snapshot and
// everything that depends on it, in dependency order: store, then sync
// engine, then supervisor. In-memory sync bookkeeping, the rollback
// snapshot included, does not survive a restart.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isRunning {
		return fmt.Errorf("manager is not running")
	}

	m.logger.Info("restarting store, engine, and supervisor")

	if m.childStop != nil {
		close(m.childStop)
		m.childStop = nil
	}
	if err := m.sup.Stop(ctx); err != nil {
		m.logger.Warn("stopping supervisor for restart", "error", err)
	}

	snap, err := m.snapshots.Load()
	if err != nil {
		m.logger.Warn("autosave snapshot unreadable on restart", "error", err)
		snap = nil
	}
	m.store = caddyfile.NewStore(snap)

	engine, err := syncer.NewEngine(&m.config.Sync, m.api, m.store, m.machine, m.baseLogger)
	if err != nil {
		return err
	}
	engine.SetHistory(m.history)
	engine.SetTelemetry(m.collector, m.emitter)
	m.engine = engine

	sup, err := supervisor.New(&m.config.Process, &m.config.Sync, m.api, m.store, m.machine, m.engine, m.baseLogger)
	if err != nil {
		return err
	}
	sup.SetTelemetry(m.collector, m.emitter)
	m.sup = sup

	if err := m.sup.Start(ctx); err != nil {
		return fmt.Errorf("restarting supervisor: %w", err)
	}
	m.watchChildLocked()
	return nil
}

// Close releases storage resources. The manager cannot be used afterwards.
func (m *Manager) Close() error {
	var firstErr error
	if m.history != nil {
		if err := m.history.Close(); err != nil {
			firstErr = err
		}
	}
	if m.eventsDB != nil {
		if err := m.eventsDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Done delivers a fatal condition, such as an owned proxy process dying.
// The run loop treats a received error as a shutdown signal.
func (m *Manager) Done() <-chan error {
	return m.fatalCh
}

// watchChildLocked starts the exit watcher for a self-managed process.
// Callers hold m.mu.
func (m *Manager) watchChildLocked() {
	self, ok := m.sup.(*supervisor.SelfSupervisor)
	if !ok {
		return
	}
	stop := make(chan struct{})
	m.childStop = stop
	go func() {
		select {
		case code := <-self.Exited():
			select {
			case <-stop:
				// Expected exit during Stop or Restart.
				return
			default:
			}
			select {
			case m.fatalCh <- fmt.Errorf("proxy process exited with code %d", code):
			default:
			}
		case <-stop:
		}
	}()
}

// onTransition is the lifecycle observer: every accepted transition is
// logged, measured, and emitted.
func (m *Manager) onTransition(from, to lifecycle.State, event lifecycle.Event) {
	m.logger.Info("lifecycle transition",
		"from", string(from),
		"to", string(to),
		"event", string(event),
	)
	if m.collector != nil {
		m.collector.RecordTransition(string(from), string(to), string(event))
		m.collector.UpdateLifecycleState(string(to))
	}
	m.emitter.Emit(events.StateChanged{From: string(from), To: string(to), Event: string(event)})
}

func (m *Manager) registerChecks() {
	m.checker.RegisterCheck("admin", func(ctx context.Context) error {
		h := m.api.HealthCheck(ctx)
		if !h.Healthy() {
			return fmt.Errorf("admin endpoint %s: %s", h.State, h.Detail)
		}
		return nil
	})
	m.checker.RegisterCheck("config", func(ctx context.Context) error {
		if !m.machine.ConfiguredOrBetter() {
			return fmt.Errorf("no configuration set (state %s)", m.machine.State())
		}
		return nil
	})
	if m.history != nil {
		m.checker.RegisterCheck("history", func(ctx context.Context) error {
			_, err := m.history.Latest(ctx)
			return err
		})
	}
}

// reloadSource re-reads the watched Caddyfile and applies it.
func (m *Manager) reloadSource() error {
	data, err := os.ReadFile(m.config.Watch.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", m.config.Watch.Path, err)
	}
	m.SetCaddyfile(string(data))
	if err := m.Sync(context.Background(), nil); err != nil {
		return fmt.Errorf("syncing reloaded configuration: %w", err)
	}
	return nil
}

func (m *Manager) currentStore() *caddyfile.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

func (m *Manager) currentEngine() *syncer.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine
}

func (m *Manager) currentSup() supervisor.Supervisor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sup
}

func (m *Manager) fire(ev lifecycle.Event) {
	if _, err := m.machine.Fire(ev); err != nil {
		m.logger.Debug("lifecycle event not accepted",
			"event", string(ev),
			"error", err,
		)
	}
}

// afterMutation autosaves the desired configuration and feeds the change
// into the lifecycle machine.
func (m *Manager) afterMutation(st *caddyfile.Store) {
	cfg := st.Get()

	if err := m.snapshots.Save(cfg); err != nil {
		m.logger.Warn("autosave failed", "error", err)
		if m.collector != nil {
			m.collector.RecordSnapshotSave("error")
		}
	} else if m.collector != nil {
		m.collector.RecordSnapshotSave("success")
	}

	if cfg.Empty() {
		m.fire(lifecycle.EventConfigCleared)
		m.emitter.Emit(events.ConfigCleared{})
		return
	}
	m.fire(lifecycle.EventConfigSet)
	m.emitter.Emit(events.ConfigSet{
		Sites:     len(cfg.Sites),
		Fragments: len(cfg.Fragments),
	})
}

// SetCaddyfile replaces the desired configuration with parsed text.
func (m *Manager) SetCaddyfile(text string) {
	st := m.currentStore()
	st.SetCaddyfile(text)
	m.afterMutation(st)
}

// SetGlobal replaces the global options block.
func (m *Manager) SetGlobal(content string) {
	st := m.currentStore()
	st.SetGlobal(content)
	m.afterMutation(st)
}

// SetBin sets the managed executable path. Only self-managed processes
// read it, on their next spawn.
func (m *Manager) SetBin(path string) {
	st := m.currentStore()
	st.SetBin(path)
	m.afterMutation(st)
}

// SetSite adds or replaces a site block.
func (m *Manager) SetSite(address, content string) {
	st := m.currentStore()
	st.SetSite(address, content)
	m.afterMutation(st)
}

// RemoveSite removes a site block, reporting whether it existed.
func (m *Manager) RemoveSite(address string) bool {
	st := m.currentStore()
	removed := st.RemoveSite(address)
	if removed {
		m.afterMutation(st)
	}
	return removed
}

// SetFragment adds or replaces a named fragment.
func (m *Manager) SetFragment(name, content string) {
	st := m.currentStore()
	st.SetFragment(name, content)
	m.afterMutation(st)
}

// RemoveFragment removes a named fragment, reporting whether it existed.
func (m *Manager) RemoveFragment(name string) bool {
	st := m.currentStore()
	removed := st.RemoveFragment(name)
	if removed {
		m.afterMutation(st)
	}
	return removed
}

// SetEnv sets an environment pair for the managed process.
func (m *Manager) SetEnv(key, value string) {
	st := m.currentStore()
	st.SetEnv(key, value)
	m.afterMutation(st)
}

// RemoveEnv removes an environment pair, reporting whether it existed.
func (m *Manager) RemoveEnv(key string) bool {
	st := m.currentStore()
	removed := st.RemoveEnv(key)
	if removed {
		m.afterMutation(st)
	}
	return removed
}

// ClearConfig empties the desired configuration.
func (m *Manager) ClearConfig() {
	st := m.currentStore()
	st.Clear()
	m.afterMutation(st)
}

// Render returns the desired configuration as Caddyfile text.
func (m *Manager) Render() []byte {
	return m.currentStore().Render()
}

// Desired returns a copy of the desired configuration.
func (m *Manager) Desired() *caddyfile.Config {
	return m.currentStore().Get()
}

// Sync pushes the desired configuration to the running process.
func (m *Manager) Sync(ctx context.Context, opts *syncer.Options) error {
	return m.currentEngine().Sync(ctx, opts)
}

// CheckDrift compares the desired configuration against what the process
// is running.
func (m *Manager) CheckDrift(ctx context.Context) (*syncer.DriftReport, error) {
	return m.currentEngine().CheckDrift(ctx)
}

// Rollback loads the last known good runtime configuration.
func (m *Manager) Rollback(ctx context.Context) error {
	return m.currentEngine().Rollback(ctx)
}

// RuntimeConfig fetches the configuration the process is actually running.
func (m *Manager) RuntimeConfig(ctx context.Context) (json.RawMessage, error) {
	return m.currentEngine().GetRuntimeConfig(ctx)
}

// ApplyRuntimePatch writes a JSON fragment at a runtime config path. The
// change is ephemeral; the next sync overwrites it.
func (m *Manager) ApplyRuntimePatch(ctx context.Context, path string, fragment []byte) error {
	return m.currentEngine().ApplyRuntimePatch(ctx, path, fragment)
}

// SyncStats reports sync bookkeeping.
func (m *Manager) SyncStats() syncer.Stats {
	return m.currentEngine().Stats()
}

// State returns the current lifecycle state.
func (m *Manager) State() lifecycle.State {
	return m.machine.State()
}

// Observe registers a lifecycle observer.
func (m *Manager) Observe(fn lifecycle.Observer) {
	m.machine.Observe(fn)
}

// ProcessStatus returns the last observed process status.
func (m *Manager) ProcessStatus() supervisor.Status {
	return m.currentSup().Status()
}

// Health probes the admin endpoint once. Unlike ProcessStatus it does not
// depend on the supervisor's poll loop, so one-shot callers get a fresh
// answer.
func (m *Manager) Health(ctx context.Context) admin.Health {
	return m.api.HealthCheck(ctx)
}

// RunProcessCommand runs an operator-configured lifecycle command. Only
// externally managed processes have a command table.
func (m *Manager) RunProcessCommand(ctx context.Context, action string) (string, error) {
	ext, ok := m.currentSup().(*supervisor.ExternalSupervisor)
	if !ok {
		return "", fmt.Errorf("process commands require external mode")
	}
	return ext.RunCommand(ctx, action)
}

// MetricsRegistry returns the Prometheus registry, or nil when metrics are
// disabled. Embedders can register their own collectors on it.
func (m *Manager) MetricsRegistry() *prometheus.Registry {
	return m.registry
}

// Versions lists recorded configuration versions, newest first.
func (m *Manager) Versions(ctx context.Context, limit int) ([]*storage.Version, error) {
	if m.history == nil {
		return nil, fmt.Errorf("version history is disabled")
	}
	return m.history.List(ctx, limit)
}

// Version returns one recorded configuration version.
func (m *Manager) Version(ctx context.Context, id string) (*storage.Version, error) {
	if m.history == nil {
		return nil, fmt.Errorf("version history is disabled")
	}
	return m.history.Get(ctx, id)
}
