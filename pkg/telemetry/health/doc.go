// Package health provides health check endpoints for Mercator Ganymede.
//
// # Overview
//
// The health package implements liveness and readiness probes for the
// control plane itself (not the managed proxy; the supervisor owns that).
// Components register named check functions with a Checker; readiness
// aggregates them, liveness only confirms the process is serving.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("admin", func(ctx context.Context) error {
//	    h := api.HealthCheck(ctx)
//	    if !h.Healthy() {
//	        return errors.New(h.Detail)
//	    }
//	    return nil
//	})
//
//	mux := http.NewServeMux()
//	health.Mount(mux, cfg, checker, health.VersionInfo{Version: version})
//
// # Endpoints
//
//   - Liveness (default /health): always 200 while the process serves
//   - Readiness (default /ready): 200 when all checks pass, 503 otherwise
//   - Version (default /version): build information
//
// # Thread Safety
//
// Checker is safe for concurrent use. Checks run concurrently during
// readiness evaluation, each bounded by the configured timeout.
package health
