// Package admin provides typed operations against the managed process's
// administrative HTTP interface.
//
// # Overview
//
// The admin package sits directly above the wire client. Each method maps to
// one admin endpoint: configuration reads and writes under /config/, full
// document loads via /load, Caddyfile-to-JSON adaptation via /adapt, process
// stop via /stop, and the server info root. The package never interprets
// configuration content beyond JSON framing; the configuration model lives in
// pkg/caddyfile and the push/compare logic in pkg/syncer.
//
// # Usage
//
//	client, err := wire.NewClient("http://localhost:2019")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	api := admin.New(client)
//
//	cfg, err := api.GetConfig(ctx, "apps/http")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	adapted, err := api.Adapt(ctx, []byte("localhost:8080 {\n  respond 200\n}"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := api.LoadRaw(ctx, adapted); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Model
//
// Every operation returns an explicit error; nothing panics and nothing
// retries. A non-2xx response always surfaces as *HTTPError carrying the
// status code and the verbatim response body. Transport failures pass through
// as *wire.ConnectError, malformed responses as *wire.ProtocolError. Callers
// branch on the error type; the supervisor in particular distinguishes an
// unreachable process (wire.IsConnectError) from one that answered badly.
//
// # Thread Safety
//
// An API value holds no mutable state and is safe for concurrent use. Each
// operation opens its own connection.
package admin
