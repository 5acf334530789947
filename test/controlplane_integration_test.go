//go:build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/internal/caddytest"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/manager"
)

// reservePort returns a localhost address that was free a moment ago.
func reservePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// controlPlaneConfig builds a config pointing at the stub admin endpoint
// with the observability listener on opsAddr.
func controlPlaneConfig(t *testing.T, endpoint, opsAddr string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.NewDefault()
	cfg.Admin.Endpoint = endpoint
	cfg.Process.Mode = "external"
	cfg.Process.HealthInterval = time.Hour
	cfg.Sync.AutoSync = false
	cfg.Storage.SnapshotPath = filepath.Join(dir, "autosave.json")
	cfg.Storage.BackupPath = filepath.Join(dir, "autosave.backup.json")
	cfg.Storage.History.Path = filepath.Join(dir, "history.db")
	cfg.Telemetry.Events.Enabled = false
	cfg.Telemetry.Logging.Level = "error"
	cfg.Telemetry.Logging.Format = "text"
	cfg.Telemetry.Metrics.ListenAddress = opsAddr
	cfg.Telemetry.Health.ListenAddress = opsAddr
	return cfg
}

// waitForHealthy waits for a health endpoint to return 200.
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func httpStatus(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

// TestControlPlaneEndToEnd drives the full loop against a scripted admin
// endpoint: boot, observe, sync, detect drift, roll back, shut down.
func TestControlPlaneEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	srv := caddytest.NewServer(t)
	runtime := map[string]any{"apps": map[string]any{"http": map[string]any{}}}
	srv.SetJSON("GET", "/config/", 200, runtime)
	srv.SetJSON("POST", "/adapt", 200, map[string]any{"result": runtime})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})

	opsAddr := reservePort(t)
	cfg := controlPlaneConfig(t, srv.URL(), opsAddr)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr, err := manager.New(cfg, logger)
	if err != nil {
		t.Fatalf("manager.New() error = %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	var (
		transMu     sync.Mutex
		transitions []lifecycle.Event
	)
	mgr.Observe(func(from, to lifecycle.State, event lifecycle.Event) {
		transMu.Lock()
		transitions = append(transitions, event)
		transMu.Unlock()
	})

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	stopped := false
	t.Cleanup(func() {
		if !stopped {
			mgr.Stop(context.Background())
		}
	})

	healthURL := "http://" + opsAddr + cfg.Telemetry.Health.LivenessPath
	if !waitForHealthy(healthURL, 5*time.Second) {
		t.Fatal("liveness endpoint never came up")
	}

	// Nothing is configured yet, so readiness must fail
	readyURL := "http://" + opsAddr + cfg.Telemetry.Health.ReadinessPath
	if got := httpStatus(t, readyURL); got != http.StatusServiceUnavailable {
		t.Errorf("readiness before config = %d, want 503", got)
	}

	// Declare and push a configuration
	mgr.SetCaddyfile("example.com {\n  respond \"ok\"\n}\n")
	if err := mgr.Sync(ctx, nil); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got := mgr.State(); got != lifecycle.StateSynced {
		t.Errorf("State() = %s, want synced", got)
	}
	if got := httpStatus(t, readyURL); got != http.StatusOK {
		t.Errorf("readiness after sync = %d, want 200", got)
	}

	// The scrape carries the control plane's own metrics
	resp, err := http.Get("http://" + opsAddr + cfg.Telemetry.Metrics.Path)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "mercator_ganymede_lifecycle_state") {
		t.Error("metrics scrape does not carry lifecycle_state")
	}
	if !strings.Contains(string(body), "mercator_ganymede_syncs_total") {
		t.Error("metrics scrape does not carry syncs_total")
	}

	// Runtime matches what was pushed
	report, err := mgr.CheckDrift(ctx)
	if err != nil {
		t.Fatalf("CheckDrift() error = %v", err)
	}
	if !report.InSync() {
		t.Errorf("CheckDrift() = %+v, want in sync", report)
	}

	// Someone edits the process behind our back
	srv.SetJSON("GET", "/config/", 200, map[string]any{
		"apps": map[string]any{"tls": map[string]any{}},
	})
	report, err = mgr.CheckDrift(ctx)
	if err != nil {
		t.Fatalf("CheckDrift() after edit error = %v", err)
	}
	if report.InSync() {
		t.Error("CheckDrift() reports in sync after runtime edit")
	}

	// Roll the edit back from the last known good snapshot
	loadsBefore := srv.RequestCount("POST", "/load")
	if err := mgr.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if got := srv.RequestCount("POST", "/load"); got != loadsBefore+1 {
		t.Errorf("load requests after rollback = %d, want %d", got, loadsBefore+1)
	}

	// The sync was recorded in the version history
	versions, err := mgr.Versions(ctx, 10)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("recorded versions = %d, want 1", len(versions))
	}

	// Graceful shutdown takes the listeners down
	if err := mgr.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	stopped = true
	if _, err := http.Get(healthURL); err == nil {
		t.Error("liveness endpoint still answering after Stop")
	}

	// The machine saw the whole journey
	transMu.Lock()
	seen := append([]lifecycle.Event(nil), transitions...)
	transMu.Unlock()
	var sawSync bool
	for _, ev := range seen {
		if ev == lifecycle.EventSyncSuccess {
			sawSync = true
		}
	}
	if !sawSync {
		t.Errorf("transitions %v never carried sync_success", seen)
	}
}

// TestControlPlaneBootsFromSnapshot verifies a second control plane picks
// up where the first left off.
func TestControlPlaneBootsFromSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	srv := caddytest.NewServer(t)
	doc := map[string]any{"apps": map[string]any{}}
	srv.SetJSON("GET", "/config/", 200, doc)
	srv.SetJSON("POST", "/adapt", 200, map[string]any{"result": doc})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})

	cfg := controlPlaneConfig(t, srv.URL(), reservePort(t))
	cfg.Telemetry.Metrics.Enabled = false
	cfg.Telemetry.Health.Enabled = false

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := manager.New(cfg, logger)
	if err != nil {
		t.Fatalf("manager.New() error = %v", err)
	}
	first.SetCaddyfile("persisted.example {\n}\n")
	if err := first.Sync(context.Background(), nil); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := manager.New(cfg, logger)
	if err != nil {
		t.Fatalf("second manager.New() error = %v", err)
	}
	defer second.Close()

	if got := second.State(); got != lifecycle.StateConfigured {
		t.Errorf("second State() = %s, want configured", got)
	}
	if !strings.Contains(string(second.Render()), "persisted.example") {
		t.Errorf("second Render() = %q, want the persisted site", second.Render())
	}
}
