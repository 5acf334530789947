package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"mercator-hq/ganymede/pkg/config"
)

// VersionInfo identifies the running build on the version endpoint.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// probeHandler adapts an evaluation func to HTTP. GET and HEAD only;
// HEAD gets the status code without a body.
func probeHandler(eval func(r *http.Request) (int, any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code, body := eval(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

// LivenessHandler answers liveness probes. It always reports ok; if the
// handler cannot run at all, the process is not serving HTTP, and that
// is the answer.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return probeHandler(func(r *http.Request) (int, any) {
		return http.StatusOK, c.CheckLiveness(r.Context())
	})
}

// ReadinessHandler answers readiness probes by evaluating every
// registered component. A degraded verdict turns into 503 so
// orchestrators stop routing to an instance whose dependencies are down.
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "config": {"status": "ok"},
//	        "admin": {"status": "unhealthy", "message": "connection refused"}
//	    },
//	    "timestamp": "2026-08-20T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return probeHandler(func(r *http.Request) (int, any) {
		status := c.CheckReadiness(r.Context())
		if status.Status == statusDegraded {
			return http.StatusServiceUnavailable, status
		}
		return http.StatusOK, status
	})
}

// VersionHandler reports the build identity. The Go version is filled in
// from the runtime when the caller left it empty.
func VersionHandler(info VersionInfo) http.HandlerFunc {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return probeHandler(func(r *http.Request) (int, any) {
		return http.StatusOK, info
	})
}

// Mount registers the three endpoints on mux at the paths named in cfg.
//
//	mux := http.NewServeMux()
//	checker := health.New(cfg.CheckTimeout)
//	health.Mount(mux, cfg, checker, health.VersionInfo{Version: "1.0.0"})
func Mount(mux *http.ServeMux, cfg *config.HealthConfig, checker *Checker, info VersionInfo) {
	mux.HandleFunc(cfg.LivenessPath, checker.LivenessHandler())
	mux.HandleFunc(cfg.ReadinessPath, checker.ReadinessHandler())
	mux.HandleFunc(cfg.VersionPath, VersionHandler(info))
}
