package admin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/ganymede/internal/caddytest"
	"mercator-hq/ganymede/pkg/wire"
)

func newTestAPI(t *testing.T, srv *caddytest.Server) *API {
	t.Helper()
	client, err := wire.NewClient(srv.URL())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return New(client)
}

func TestGetConfig(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{
		"apps": map[string]any{"http": map[string]any{}},
	})

	api := newTestAPI(t, srv)
	raw, err := api.GetConfig(context.Background(), "")
	if err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}

	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if _, ok := cfg["apps"]; !ok {
		t.Error("config missing apps key")
	}
}

func TestGetConfig_SubPath(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/apps/http", 200, map[string]any{"servers": map[string]any{}})

	api := newTestAPI(t, srv)
	if _, err := api.GetConfig(context.Background(), "apps/http"); err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}
	if srv.RequestCount("GET", "/config/apps/http") != 1 {
		t.Error("request did not hit /config/apps/http")
	}

	// A leading slash on the sub-path must not produce a double slash.
	srv.SetJSON("GET", "/config/apps", 200, map[string]any{})
	if _, err := api.GetConfig(context.Background(), "/apps"); err != nil {
		t.Fatalf("GetConfig with leading slash returned error: %v", err)
	}
	if srv.RequestCount("GET", "/config/apps") != 1 {
		t.Error("leading slash was not normalized")
	}
}

func TestConfigMutations(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetResponse("POST", "/config/apps/http", caddytest.Response{Status: 200})
	srv.SetResponse("PUT", "/config/apps/http", caddytest.Response{Status: 200})
	srv.SetResponse("PATCH", "/config/apps/http", caddytest.Response{Status: 200})
	srv.SetResponse("DELETE", "/config/apps/http", caddytest.Response{Status: 200})

	api := newTestAPI(t, srv)
	ctx := context.Background()
	body := []byte(`{"servers":{}}`)

	if err := api.PostConfig(ctx, "apps/http", body); err != nil {
		t.Errorf("PostConfig: %v", err)
	}
	if err := api.PutConfig(ctx, "apps/http", body); err != nil {
		t.Errorf("PutConfig: %v", err)
	}
	if err := api.PatchConfig(ctx, "apps/http", body); err != nil {
		t.Errorf("PatchConfig: %v", err)
	}
	if err := api.DeleteConfig(ctx, "apps/http"); err != nil {
		t.Errorf("DeleteConfig: %v", err)
	}

	req, ok := srv.LastRequest("POST", "/config/apps/http")
	if !ok {
		t.Fatal("POST request not recorded")
	}
	if string(req.Body) != `{"servers":{}}` {
		t.Errorf("POST body = %q", req.Body)
	}
	if req.Headers["content-type"] != "application/json" {
		t.Errorf("POST content type = %q", req.Headers["content-type"])
	}
}

func TestLoadRaw(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})

	api := newTestAPI(t, srv)
	doc := []byte(`{"apps":{"http":{}}}`)
	if err := api.LoadRaw(context.Background(), doc); err != nil {
		t.Fatalf("LoadRaw returned error: %v", err)
	}

	req, ok := srv.LastRequest("POST", "/load")
	if !ok {
		t.Fatal("load request not recorded")
	}
	if string(req.Body) != string(doc) {
		t.Errorf("load body = %q, want verbatim document", req.Body)
	}
}

func TestLoad_MergesOverCurrent(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{
		"admin": map[string]any{"listen": "localhost:2019"},
		"apps":  map[string]any{"tls": map[string]any{"x": float64(1)}},
	})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})

	api := newTestAPI(t, srv)
	err := api.Load(context.Background(), map[string]any{
		"apps": map[string]any{"http": map[string]any{"servers": map[string]any{}}},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	req, ok := srv.LastRequest("POST", "/load")
	if !ok {
		t.Fatal("load request not recorded")
	}
	var sent map[string]any
	if err := json.Unmarshal(req.Body, &sent); err != nil {
		t.Fatalf("unmarshal sent document: %v", err)
	}

	// The untouched admin block survives, and within apps the existing tls
	// app coexists with the newly supplied http app.
	if _, ok := sent["admin"]; !ok {
		t.Error("merged document lost admin block")
	}
	apps, _ := sent["apps"].(map[string]any)
	if _, ok := apps["tls"]; !ok {
		t.Error("merged document lost existing apps.tls")
	}
	if _, ok := apps["http"]; !ok {
		t.Error("merged document missing new apps.http")
	}
}

func TestLoad_NullCurrentConfig(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetResponse("GET", "/config/", caddytest.Response{Status: 200, Body: []byte("null\n")})
	srv.SetResponse("POST", "/load", caddytest.Response{Status: 200})

	api := newTestAPI(t, srv)
	err := api.Load(context.Background(), map[string]any{"apps": map[string]any{}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	req, _ := srv.LastRequest("POST", "/load")
	var sent map[string]any
	if err := json.Unmarshal(req.Body, &sent); err != nil {
		t.Fatalf("unmarshal sent document: %v", err)
	}
	if len(sent) != 1 {
		t.Errorf("document sent over null config = %v, want just the new map", sent)
	}
}

func TestAdapt(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("POST", "/adapt", 200, map[string]any{
		"result": map[string]any{"apps": map[string]any{}},
	})

	api := newTestAPI(t, srv)
	out, err := api.Adapt(context.Background(), []byte("localhost:8080 {\n  respond 200\n}"))
	if err != nil {
		t.Fatalf("Adapt returned error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal adapted document: %v", err)
	}
	if _, ok := doc["apps"]; !ok {
		t.Errorf("adapted document = %s, want the unwrapped result", out)
	}
	if _, ok := doc["result"]; ok {
		t.Errorf("adapted document = %s, result envelope leaked through", out)
	}

	req, ok := srv.LastRequest("POST", "/adapt")
	if !ok {
		t.Fatal("adapt request not recorded")
	}
	if req.Headers["content-type"] != "text/caddyfile" {
		t.Errorf("adapt content type = %q, want text/caddyfile", req.Headers["content-type"])
	}
}

func TestAdapt_BareDocument(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("POST", "/adapt", 200, map[string]any{"apps": map[string]any{}})

	api := newTestAPI(t, srv)
	out, err := api.Adapt(context.Background(), []byte("localhost:8080 {\n  respond 200\n}"))
	if err != nil {
		t.Fatalf("Adapt returned error: %v", err)
	}
	if !strings.Contains(string(out), "apps") {
		t.Errorf("adapted document = %s, want the bare body passed through", out)
	}
}

func TestAdapt_RejectsInvalidText(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("POST", "/adapt", 400, map[string]any{"error": "unrecognized directive"})

	api := newTestAPI(t, srv)
	_, err := api.Adapt(context.Background(), []byte("not a caddyfile {{{"))
	if err == nil {
		t.Fatal("Adapt succeeded on invalid text")
	}

	he, ok := IsHTTPError(err)
	if !ok {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if he.Status != 400 {
		t.Errorf("status = %d, want 400", he.Status)
	}
	if !strings.Contains(string(he.Body), "unrecognized directive") {
		t.Errorf("body = %q, want verbatim rejection reason", he.Body)
	}
}

func TestStop(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetResponse("POST", "/stop", caddytest.Response{Status: 200})

	api := newTestAPI(t, srv)
	if err := api.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if srv.RequestCount("POST", "/stop") != 1 {
		t.Error("stop request not sent")
	}
}

func TestServerInfo(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/", 200, map[string]any{"version": "v2.8.4"})

	api := newTestAPI(t, srv)
	info, err := api.ServerInfo(context.Background())
	if err != nil {
		t.Fatalf("ServerInfo returned error: %v", err)
	}
	if !strings.Contains(string(info), "v2.8.4") {
		t.Errorf("info = %s", info)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := caddytest.NewServer(t)
		srv.SetJSON("GET", "/config/", 200, map[string]any{})

		api := newTestAPI(t, srv)
		h := api.HealthCheck(context.Background())
		if h.State != HealthStateHealthy {
			t.Errorf("state = %q, want healthy (detail: %s)", h.State, h.Detail)
		}
		if !h.Healthy() {
			t.Error("Healthy() = false")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := caddytest.NewServer(t)
		url := srv.URL()
		srv.Close()

		client, err := wire.NewClient(url)
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		h := New(client).HealthCheck(context.Background())
		if h.State != HealthStateUnreachable {
			t.Errorf("state = %q, want unreachable", h.State)
		}
		if h.Detail == "" {
			t.Error("unreachable state should carry detail")
		}
	})

	t.Run("unhealthy on non-200", func(t *testing.T) {
		srv := caddytest.NewServer(t)
		srv.SetJSON("GET", "/config/", 500, map[string]any{"error": "broken"})

		api := newTestAPI(t, srv)
		h := api.HealthCheck(context.Background())
		if h.State != HealthStateUnhealthy {
			t.Errorf("state = %q, want unhealthy", h.State)
		}
	})
}

func TestHTTPError_Surface(t *testing.T) {
	srv := caddytest.NewServer(t)
	srv.SetJSON("GET", "/config/", 400, map[string]any{"error": "bad path"})

	api := newTestAPI(t, srv)
	_, err := api.GetConfig(context.Background(), "")
	if err == nil {
		t.Fatal("GetConfig succeeded, want error")
	}
	he, ok := IsHTTPError(err)
	if !ok {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if he.Status != 400 {
		t.Errorf("status = %d, want 400", he.Status)
	}
	if !strings.Contains(he.Error(), "400") {
		t.Errorf("Error() = %q, should mention status", he.Error())
	}
}

func TestAPI_OverUnixSocket(t *testing.T) {
	srv := caddytest.NewUnixServer(t)
	srv.SetJSON("GET", "/config/", 200, map[string]any{"apps": map[string]any{}})

	api := newTestAPI(t, srv)
	if _, err := api.GetConfig(context.Background(), ""); err != nil {
		t.Fatalf("GetConfig over unix socket returned error: %v", err)
	}
}

func TestChunkedConfigResponse(t *testing.T) {
	// Large configs come back chunked; the typed layer must see the
	// reassembled document.
	srv := caddytest.NewServer(t)
	srv.SetResponse("GET", "/config/", caddytest.Response{
		Status: 200,
		Chunks: [][]byte{[]byte(`{"apps":`), []byte(`{"http":{}}`), []byte(`}`)},
	})

	api := newTestAPI(t, srv)
	raw, err := api.GetConfig(context.Background(), "")
	if err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("chunked body did not reassemble to valid JSON: %v", err)
	}
}
