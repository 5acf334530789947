package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/ganymede/internal/caddytest"
	"mercator-hq/ganymede/pkg/syncer"
)

func TestRunDriftUnconfigured(t *testing.T) {
	// Nothing saved: the check cannot run and no request is made
	setConfigFlag(t, writeTestConfig(t, "http://127.0.0.1:9"))

	if err := runDrift(nil, nil); !errors.Is(err, syncer.ErrNoConfig) {
		t.Errorf("runDrift() error = %v, want ErrNoConfig", err)
	}
}

func TestRunDriftAfterSync(t *testing.T) {
	srv := caddytest.NewServer(t)
	doc := map[string]any{"apps": map[string]any{"http": map[string]any{}}}
	srv.SetJSON("POST", "/adapt", 200, map[string]any{"result": doc})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})
	srv.SetJSON("GET", "/config/", 200, doc)

	setConfigFlag(t, writeTestConfig(t, srv.URL()))

	caddyfilePath := filepath.Join(t.TempDir(), "Caddyfile")
	if err := os.WriteFile(caddyfilePath, []byte("example.com {\n}\n"), 0o644); err != nil {
		t.Fatalf("writing Caddyfile: %v", err)
	}
	syncFlags.file = caddyfilePath
	t.Cleanup(func() { syncFlags.file = "" })

	if err := runSync(nil, nil); err != nil {
		t.Fatalf("runSync() error = %v", err)
	}

	// The runtime matches what was just pushed
	if err := runDrift(nil, nil); err != nil {
		t.Errorf("runDrift() error = %v, want in sync", err)
	}
}

func TestRunDriftDetected(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("POST", "/adapt", 200, map[string]any{
		"result": map[string]any{"apps": map[string]any{"http": map[string]any{}}},
	})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})

	setConfigFlag(t, writeTestConfig(t, srv.URL()))

	caddyfilePath := filepath.Join(t.TempDir(), "Caddyfile")
	if err := os.WriteFile(caddyfilePath, []byte("example.com {\n}\n"), 0o644); err != nil {
		t.Fatalf("writing Caddyfile: %v", err)
	}
	syncFlags.file = caddyfilePath
	t.Cleanup(func() { syncFlags.file = "" })

	// Sync first so something is saved, then change what the proxy reports
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{"http": map[string]any{}}})
	if err := runSync(nil, nil); err != nil {
		t.Fatalf("runSync() error = %v", err)
	}
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{"tls": map[string]any{}}})

	if err := runDrift(nil, nil); err == nil {
		t.Error("runDrift() with diverged runtime should return error")
	}
}
