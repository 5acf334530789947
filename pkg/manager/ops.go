package manager

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// opsServer serves the observability endpoints. Metrics and health probes
// share one listener when their configured addresses match.
type opsServer struct {
	cfg       *config.TelemetryConfig
	collector *metrics.Collector
	checker   *health.Checker
	version   *health.VersionInfo
	logger    *slog.Logger

	servers []*http.Server
	group   *errgroup.Group
}

// newOpsServer prepares the observability listeners. Returns nil when both
// surfaces are disabled; nothing listens until start.
func newOpsServer(cfg *config.TelemetryConfig, collector *metrics.Collector, checker *health.Checker, version *health.VersionInfo, logger *slog.Logger) *opsServer {
	metricsOn := cfg.Metrics.Enabled && collector != nil && cfg.Metrics.ListenAddress != ""
	healthOn := cfg.Health.Enabled && cfg.Health.ListenAddress != ""
	if !metricsOn && !healthOn {
		return nil
	}
	return &opsServer{
		cfg:       cfg,
		collector: collector,
		checker:   checker,
		version:   version,
		logger:    logger.With("component", "ops"),
	}
}

// start binds the listeners and begins serving. Bind failures surface
// synchronously; a partial start is rolled back.
func (o *opsServer) start() error {
	// A fresh group per start keeps an old cycle's serve error from
	// leaking into this cycle's Wait.
	o.group = new(errgroup.Group)

	muxes := map[string]*http.ServeMux{}
	muxFor := func(addr string) *http.ServeMux {
		if muxes[addr] == nil {
			muxes[addr] = http.NewServeMux()
		}
		return muxes[addr]
	}

	if o.cfg.Metrics.Enabled && o.collector != nil && o.cfg.Metrics.ListenAddress != "" {
		muxFor(o.cfg.Metrics.ListenAddress).Handle(o.cfg.Metrics.Path, o.collector.Handler())
	}
	if o.cfg.Health.Enabled && o.cfg.Health.ListenAddress != "" {
		health.Mount(muxFor(o.cfg.Health.ListenAddress), &o.cfg.Health, o.checker, *o.version)
	}

	addrs := make([]string, 0, len(muxes))
	for addr := range muxes {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		srv := &http.Server{
			Addr:              addr,
			Handler:           muxes[addr],
			ReadHeaderTimeout: 5 * time.Second,
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			o.stop(stopCtx)
			cancel()
			return err
		}
		o.servers = append(o.servers, srv)
		o.logger.Info("observability endpoints listening", "address", addr)

		o.group.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	return nil
}

// stop shuts the listeners down and waits for the serve goroutines.
func (o *opsServer) stop(ctx context.Context) error {
	var firstErr error
	for _, srv := range o.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.servers = nil
	if o.group != nil {
		if err := o.group.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
