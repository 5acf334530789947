package metrics

import (
	"strconv"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AdminMetrics tracks metrics for admin API requests.
//
// Metrics:
//   - mercator_ganymede_admin_requests_total: Requests by method, path, status
//   - mercator_ganymede_admin_request_duration_seconds: Request duration histogram
//   - mercator_ganymede_admin_errors_total: Failed requests by error class
type AdminMetrics struct {
	// Request count
	requestsTotal *prometheus.CounterVec

	// Request duration histogram
	requestDuration *prometheus.HistogramVec

	// Transport and protocol failures
	errorsTotal *prometheus.CounterVec
}

// NewAdminMetrics creates and registers admin metrics with the provided registry.
func NewAdminMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AdminMetrics {
	am := &AdminMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admin_requests_total",
				Help:      "Total number of admin API requests",
			},
			[]string{"method", "path", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admin_request_duration_seconds",
				Help:      "Duration of admin API requests in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
			},
			[]string{"method", "path"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admin_errors_total",
				Help:      "Total number of failed admin API requests by error class",
			},
			[]string{"type"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		am.requestsTotal,
		am.requestDuration,
		am.errorsTotal,
	)

	return am
}

// RecordRequest records a completed admin API request.
func (am *AdminMetrics) RecordRequest(method, path string, status int, duration time.Duration) {
	am.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	am.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError records a failed admin API request.
func (am *AdminMetrics) RecordError(errorType string) {
	am.errorsTotal.WithLabelValues(errorType).Inc()
}
