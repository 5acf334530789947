package supervisor

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/internal/caddytest"
	"mercator-hq/ganymede/pkg/lifecycle"
)

// writeScript drops an executable shell script into the test's temp dir and
// returns its path.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-caddy")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func newSelf(t *testing.T, r *rig, bin, dir string) *SelfSupervisor {
	t.Helper()
	r.procCfg.Mode = "self"
	r.procCfg.Bin = bin
	r.procCfg.ConfigFile = filepath.Join(dir, "Caddyfile")
	r.procCfg.PidFile = filepath.Join(dir, "caddy.pid")
	s, err := NewSelf(r.procCfg, r.syncCfg, r.api, r.store, r.machine, r.engine, testLogger())
	if err != nil {
		t.Fatalf("NewSelf: %v", err)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSelfSpawnAndStop(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	dir := t.TempDir()
	bin := writeScript(t, dir, "exec sleep 60\n")

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	s := newSelf(t, r, bin, dir)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start accepted")
	}

	pid := s.PID()
	if pid <= 0 {
		t.Fatalf("PID = %d, want a live process", pid)
	}
	if !processAlive(pid) {
		t.Fatal("spawned process not alive")
	}

	data, err := os.ReadFile(r.procCfg.PidFile)
	if err != nil {
		t.Fatalf("reading pidfile: %v", err)
	}
	if got, _ := strconv.Atoi(strings.TrimSpace(string(data))); got != pid {
		t.Errorf("pidfile = %d, want %d", got, pid)
	}

	rendered, err := os.ReadFile(r.procCfg.ConfigFile)
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}
	if !bytes.Equal(rendered, r.store.Render()) {
		t.Errorf("config file does not match the rendered store")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if processAlive(pid) {
		t.Error("process still alive after Stop")
	}
	if _, err := os.Stat(r.procCfg.PidFile); !os.IsNotExist(err) {
		t.Errorf("pidfile still present after Stop: %v", err)
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestSelfExitPropagation(t *testing.T) {
	srv := caddytest.NewServer(t)
	dir := t.TempDir()
	bin := writeScript(t, dir, "exit 7\n")

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	s := newSelf(t, r, bin, dir)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case code := <-s.Exited():
		if code != 7 {
			t.Errorf("exit code = %d, want 7", code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no exit reported")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop after exit: %v", err)
	}
}

func TestSelfAdoptsRunningProcess(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	dir := t.TempDir()
	bin := writeScript(t, dir, "exec sleep 60\n")

	helper := exec.Command("sleep", "60")
	if err := helper.Start(); err != nil {
		t.Fatalf("starting helper process: %v", err)
	}
	reaped := make(chan struct{})
	go func() {
		helper.Wait()
		close(reaped)
	}()
	t.Cleanup(func() {
		helper.Process.Kill()
		<-reaped
	})

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	s := newSelf(t, r, bin, dir)
	if err := os.WriteFile(r.procCfg.PidFile, []byte(strconv.Itoa(helper.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatalf("writing pidfile: %v", err)
	}
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.adopted {
		t.Fatal("running process not adopted")
	}
	if got := s.PID(); got != helper.Process.Pid {
		t.Errorf("PID = %d, want adopted %d", got, helper.Process.Pid)
	}
	if _, err := os.Stat(r.procCfg.ConfigFile); !os.IsNotExist(err) {
		t.Error("config file written despite adoption")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "adopted process to die", func() bool {
		return !processAlive(helper.Process.Pid)
	})
	if _, err := os.Stat(r.procCfg.PidFile); !os.IsNotExist(err) {
		t.Errorf("pidfile still present after Stop: %v", err)
	}
}

func TestSelfIgnoresStalePidFile(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	dir := t.TempDir()
	bin := writeScript(t, dir, "exec sleep 60\n")

	// A reaped child's PID is as dead as PIDs get.
	helper := exec.Command("true")
	if err := helper.Run(); err != nil {
		t.Fatalf("running helper process: %v", err)
	}
	stale := helper.Process.Pid

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	s := newSelf(t, r, bin, dir)
	if err := os.WriteFile(r.procCfg.PidFile, []byte(strconv.Itoa(stale)+"\n"), 0o644); err != nil {
		t.Fatalf("writing pidfile: %v", err)
	}
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	if s.adopted {
		t.Error("stale pidfile adopted")
	}
	if got := s.PID(); got == stale || got <= 0 {
		t.Errorf("PID = %d, want a fresh process (stale was %d)", got, stale)
	}
}

func TestSelfMissingBinary(t *testing.T) {
	srv := caddytest.NewServer(t)
	dir := t.TempDir()

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	s := newSelf(t, r, filepath.Join(dir, "no-such-binary"), dir)

	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("missing binary accepted")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want it to mention the missing binary", err)
	}

	// The failed Start must not latch the running guard.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after failed Start: %v", err)
	}
}

// syncBuffer is a goroutine-safe bytes.Buffer for capturing log output.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestSelfStreamsOutput(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	dir := t.TempDir()
	bin := writeScript(t, dir, "echo hello from the proxy\nexec sleep 60\n")

	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)
	r.procCfg.Mode = "self"
	r.procCfg.Bin = bin
	r.procCfg.ConfigFile = filepath.Join(dir, "Caddyfile")
	r.procCfg.PidFile = filepath.Join(dir, "caddy.pid")
	s, err := NewSelf(r.procCfg, r.syncCfg, r.api, r.store, r.machine, r.engine, logger)
	if err != nil {
		t.Fatalf("NewSelf: %v", err)
	}
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	waitFor(t, "child output to reach the logger", func() bool {
		return strings.Contains(buf.String(), "hello from the proxy")
	})
}

func TestNewSelectsMode(t *testing.T) {
	srv := caddytest.NewServer(t)
	r := newRig(t, srv.URL(), lifecycle.StateConfigured, false)

	r.procCfg.Mode = "external"
	sup, err := New(r.procCfg, r.syncCfg, r.api, r.store, r.machine, r.engine, testLogger())
	if err != nil {
		t.Fatalf("New(external): %v", err)
	}
	if _, ok := sup.(*ExternalSupervisor); !ok {
		t.Errorf("New(external) = %T, want *ExternalSupervisor", sup)
	}

	r.procCfg.Mode = ""
	sup, err = New(r.procCfg, r.syncCfg, r.api, r.store, r.machine, r.engine, testLogger())
	if err != nil {
		t.Fatalf("New(empty mode): %v", err)
	}
	if _, ok := sup.(*ExternalSupervisor); !ok {
		t.Errorf("New(empty mode) = %T, want *ExternalSupervisor", sup)
	}

	r.procCfg.Mode = "self"
	r.procCfg.Bin = "caddy"
	sup, err = New(r.procCfg, r.syncCfg, r.api, r.store, r.machine, r.engine, testLogger())
	if err != nil {
		t.Fatalf("New(self): %v", err)
	}
	if _, ok := sup.(*SelfSupervisor); !ok {
		t.Errorf("New(self) = %T, want *SelfSupervisor", sup)
	}

	r.procCfg.Mode = "sidecar"
	if _, err := New(r.procCfg, r.syncCfg, r.api, r.store, r.machine, r.engine, testLogger()); err == nil {
		t.Error("unknown mode accepted")
	}
}
