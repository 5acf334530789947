package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"mercator-hq/ganymede/internal/caddytest"
	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rig bundles the collaborators a supervisor is built from.
type rig struct {
	procCfg *config.ProcessConfig
	syncCfg *config.SyncConfig
	api     *admin.API
	store   *caddyfile.Store
	machine *lifecycle.Machine
	engine  *syncer.Engine
}

// newRig wires collaborators against the given admin URL with one site
// configured.
func newRig(t *testing.T, url string, initial lifecycle.State, autoSync bool) *rig {
	t.Helper()

	client, err := wire.NewClient(url)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	api := admin.New(client)

	store := caddyfile.NewStore(nil)
	store.SetSite("example.com", "respond 200")

	machine := lifecycle.NewMachine(initial)

	syncCfg := &config.SyncConfig{Backup: true, Validate: true, AutoSync: autoSync}
	engine, err := syncer.NewEngine(syncCfg, api, store, machine, testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	return &rig{
		procCfg: &config.ProcessConfig{
			Mode:           "external",
			HealthInterval: time.Second,
			RecheckDelay:   10 * time.Millisecond,
		},
		syncCfg: syncCfg,
		api:     api,
		store:   store,
		machine: machine,
		engine:  engine,
	}
}

func (r *rig) external(t *testing.T) *ExternalSupervisor {
	t.Helper()
	s, err := NewExternal(r.procCfg, r.syncCfg, r.api, r.machine, r.engine, testLogger())
	if err != nil {
		t.Fatalf("NewExternal: %v", err)
	}
	return s
}

// scriptSync points the stub at a runtime document, an adapt result, and a
// successful load.
func scriptSync(srv *caddytest.Server, runtime, adapted map[string]any) {
	srv.SetJSON("GET", "/config/", 200, runtime)
	srv.SetJSON("POST", "/adapt", 200, map[string]any{"result": adapted})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})
}

func TestNewExternal_NilArguments(t *testing.T) {
	srv := caddytest.NewServer(t)
	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)

	if _, err := NewExternal(nil, r.syncCfg, r.api, r.machine, r.engine, testLogger()); err == nil {
		t.Error("nil process config accepted")
	}
	if _, err := NewExternal(r.procCfg, nil, r.api, r.machine, r.engine, testLogger()); err == nil {
		t.Error("nil sync config accepted")
	}
	if _, err := NewExternal(r.procCfg, r.syncCfg, nil, r.machine, r.engine, testLogger()); err == nil {
		t.Error("nil API accepted")
	}
	if _, err := NewExternal(r.procCfg, r.syncCfg, r.api, nil, r.engine, testLogger()); err == nil {
		t.Error("nil machine accepted")
	}
	if _, err := NewExternal(r.procCfg, r.syncCfg, r.api, r.machine, nil, testLogger()); err == nil {
		t.Error("nil engine accepted")
	}
}

// Repeated failed probes collapse into a single status transition, and a
// recovery brings the machine back to synced.
func TestHealthTransitions(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})
	addr := strings.TrimPrefix(srv.URL(), "http://")

	r := newRig(t, srv.URL(), lifecycle.StateSynced, false)
	s := r.external(t)

	sink := events.NewMemorySink()
	s.SetTelemetry(nil, events.NewEmitter(sink))

	ctx := context.Background()

	s.loop.checkOnce(ctx)
	if got := s.Status(); got != StatusRunning {
		t.Fatalf("status after good probe = %q, want %q", got, StatusRunning)
	}
	if got := r.machine.State(); got != lifecycle.StateSynced {
		t.Fatalf("state after good probe = %q, want synced", got)
	}

	srv.Close()
	for i := 0; i < 3; i++ {
		s.loop.checkOnce(ctx)
	}
	if got := s.Status(); got != StatusStopped {
		t.Fatalf("status during outage = %q, want %q", got, StatusStopped)
	}
	if got := r.machine.State(); got != lifecycle.StateDegraded {
		t.Fatalf("state during outage = %q, want degraded", got)
	}

	srv2 := caddytest.NewServerAt(t, addr)
	srv2.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	s.loop.checkOnce(ctx)
	if got := s.Status(); got != StatusRunning {
		t.Fatalf("status after recovery = %q, want %q", got, StatusRunning)
	}
	if got := r.machine.State(); got != lifecycle.StateSynced {
		t.Fatalf("state after recovery = %q, want synced", got)
	}

	// unknown->running, running->stopped, stopped->running. The two extra
	// failed probes change nothing.
	var changes int
	for _, k := range sink.Kinds() {
		if k == events.KindHealthChanged {
			changes++
		}
	}
	if changes != 3 {
		t.Errorf("health_changed events = %d, want 3 (kinds: %v)", changes, sink.Kinds())
	}
}

func TestAutoSyncOnFirstContact(t *testing.T) {
	srv := caddytest.NewServer(t)
	scriptSync(srv,
		map[string]any{"apps": map[string]any{}},
		map[string]any{"apps": map[string]any{"http": map[string]any{}}},
	)
	addr := strings.TrimPrefix(srv.URL(), "http://")

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, true)
	s := r.external(t)
	ctx := context.Background()

	s.loop.checkOnce(ctx)

	if got := srv.RequestCount("POST", "/load"); got != 1 {
		t.Fatalf("loads after first contact = %d, want 1", got)
	}
	if got := r.machine.State(); got != lifecycle.StateSynced {
		t.Fatalf("state after first contact = %q, want synced", got)
	}
	if got := r.engine.Stats().SyncCount; got != 1 {
		t.Fatalf("SyncCount = %d, want 1", got)
	}

	// A full outage and recovery must not trigger a second push.
	srv.Close()
	s.loop.checkOnce(ctx)
	srv2 := caddytest.NewServerAt(t, addr)
	scriptSync(srv2,
		map[string]any{"apps": map[string]any{}},
		map[string]any{"apps": map[string]any{"http": map[string]any{}}},
	)
	s.loop.checkOnce(ctx)

	if got := s.Status(); got != StatusRunning {
		t.Fatalf("status after recovery = %q, want %q", got, StatusRunning)
	}
	if got := srv2.RequestCount("POST", "/load"); got != 0 {
		t.Errorf("loads after recovery = %d, want 0", got)
	}
}

func TestAutoSyncDisabled(t *testing.T) {
	srv := caddytest.NewServer(t)
	scriptSync(srv,
		map[string]any{"apps": map[string]any{}},
		map[string]any{"apps": map[string]any{"http": map[string]any{}}},
	)

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	s := r.external(t)

	s.loop.checkOnce(context.Background())

	if got := srv.RequestCount("POST", "/load"); got != 0 {
		t.Errorf("loads with auto sync disabled = %d, want 0", got)
	}
	if got := s.Status(); got != StatusRunning {
		t.Errorf("status = %q, want %q", got, StatusRunning)
	}
}

func TestAutoSyncSkipsWhenAlreadySynced(t *testing.T) {
	srv := caddytest.NewServer(t)
	scriptSync(srv,
		map[string]any{"apps": map[string]any{}},
		map[string]any{"apps": map[string]any{"http": map[string]any{}}},
	)

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, true)
	s := r.external(t)
	ctx := context.Background()

	if err := r.engine.Sync(ctx, nil); err != nil {
		t.Fatalf("manual sync: %v", err)
	}
	if got := srv.RequestCount("POST", "/load"); got != 1 {
		t.Fatalf("loads after manual sync = %d, want 1", got)
	}

	s.loop.checkOnce(ctx)

	if got := srv.RequestCount("POST", "/load"); got != 1 {
		t.Errorf("loads after first contact = %d, want 1 (no second push)", got)
	}
}

// The first-contact push is spent even when there is nothing to push.
func TestAutoSyncSpentOnEmptyStore(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})
	addr := strings.TrimPrefix(srv.URL(), "http://")

	r := newRig(t, srv.URL(), lifecycle.StateUnconfigured, true)
	r.store.Clear()
	s := r.external(t)
	ctx := context.Background()

	s.loop.checkOnce(ctx)
	if got := srv.RequestCount("POST", "/load"); got != 0 {
		t.Fatalf("loads with empty store = %d, want 0", got)
	}
	if !s.loop.autoSynced {
		t.Fatal("first-contact push not marked spent")
	}

	// Configuration arriving later waits for an explicit sync; another
	// first contact does not happen.
	r.store.SetSite("example.com", "respond 200")
	srv.Close()
	s.loop.checkOnce(ctx)
	srv2 := caddytest.NewServerAt(t, addr)
	scriptSync(srv2,
		map[string]any{"apps": map[string]any{}},
		map[string]any{"apps": map[string]any{"http": map[string]any{}}},
	)
	s.loop.checkOnce(ctx)

	if got := srv2.RequestCount("POST", "/load"); got != 0 {
		t.Errorf("loads after recovery = %d, want 0", got)
	}
}

func TestRunCommand(t *testing.T) {
	srv := caddytest.NewServer(t)
	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	r.procCfg.Commands = config.CommandsConfig{
		Status: "printf 'caddy is fine'",
		Stop:   "echo boom >&2; exit 3",
	}
	s := r.external(t)
	ctx := context.Background()

	out, err := s.RunCommand(ctx, "status")
	if err != nil {
		t.Fatalf("status command: %v", err)
	}
	if out != "caddy is fine" {
		t.Errorf("output = %q, want %q", out, "caddy is fine")
	}

	_, err = s.RunCommand(ctx, "stop")
	var failed *CommandFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("stop command error = %v, want CommandFailedError", err)
	}
	if failed.Code != 3 {
		t.Errorf("exit code = %d, want 3", failed.Code)
	}
	if !strings.Contains(failed.Output, "boom") {
		t.Errorf("output = %q, want it to contain %q", failed.Output, "boom")
	}

	_, err = s.RunCommand(ctx, "start")
	var missing *CommandNotConfiguredError
	if !errors.As(err, &missing) {
		t.Fatalf("start command error = %v, want CommandNotConfiguredError", err)
	}
	if missing.Action != "start" {
		t.Errorf("action = %q, want %q", missing.Action, "start")
	}

	if _, err := s.RunCommand(ctx, "reload"); !errors.As(err, &missing) {
		t.Errorf("unknown action error = %v, want CommandNotConfiguredError", err)
	}
}

func TestStartProcessSchedulesRecheck(t *testing.T) {
	srv := caddytest.NewServer(t)
	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	r.procCfg.Commands.Start = "true"
	s := r.external(t)

	if err := s.StartProcess(context.Background()); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}

	select {
	case d := <-s.loop.kick:
		if d != s.loop.recheck {
			t.Errorf("recheck delay = %v, want %v", d, s.loop.recheck)
		}
	default:
		t.Fatal("no recheck scheduled after start")
	}
}

func TestStartProcessFailureSkipsRecheck(t *testing.T) {
	srv := caddytest.NewServer(t)
	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	r.procCfg.Commands.Start = "exit 1"
	s := r.external(t)

	if err := s.StartProcess(context.Background()); err == nil {
		t.Fatal("failing start command reported success")
	}

	select {
	case <-s.loop.kick:
		t.Fatal("recheck scheduled after failed start")
	default:
	}
}

func TestExternalStartStop(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	r.procCfg.HealthInterval = 20 * time.Millisecond
	s := r.external(t)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start accepted")
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Status() != StatusRunning && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.Status(); got != StatusRunning {
		t.Fatalf("status while polling = %q, want %q", got, StatusRunning)
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStatusFromHealth(t *testing.T) {
	tests := []struct {
		state admin.HealthState
		want  Status
	}{
		{admin.HealthStateHealthy, StatusRunning},
		{admin.HealthStateUnreachable, StatusStopped},
		{admin.HealthStateUnhealthy, StatusUnknown},
	}
	for _, tt := range tests {
		if got := statusFromHealth(admin.Health{State: tt.state}); got != tt.want {
			t.Errorf("statusFromHealth(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
