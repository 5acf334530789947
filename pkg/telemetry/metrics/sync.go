package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics tracks metrics for the config synchronization engine.
//
// Metrics:
//   - mercator_ganymede_syncs_total: Sync attempts by result
//   - mercator_ganymede_sync_duration_seconds: Sync duration histogram
//   - mercator_ganymede_validations_total: Validation attempts by result
//   - mercator_ganymede_drift_checks_total: Drift audits by result
//   - mercator_ganymede_drift_paths: Differing paths found by the last audit
//   - mercator_ganymede_rollbacks_total: Rollback attempts by result
type SyncMetrics struct {
	// Sync attempt count
	syncsTotal *prometheus.CounterVec

	// Sync duration histogram
	syncDuration prometheus.Histogram

	// Validation attempt count
	validationsTotal *prometheus.CounterVec

	// Drift audit count
	driftChecksTotal *prometheus.CounterVec

	// Differing paths in the most recent audit
	driftPaths prometheus.Gauge

	// Rollback attempt count
	rollbacksTotal *prometheus.CounterVec
}

// NewSyncMetrics creates and registers sync metrics with the provided registry.
func NewSyncMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SyncMetrics {
	sm := &SyncMetrics{
		syncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "syncs_total",
				Help:      "Total number of config sync attempts",
			},
			[]string{"result"},
		),

		syncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sync_duration_seconds",
				Help:      "Duration of config syncs in seconds",
				// Admin round-trips dominate; 10ms to 10s covers them
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),

		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validations_total",
				Help:      "Total number of config validation attempts",
			},
			[]string{"result"},
		),

		driftChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "drift_checks_total",
				Help:      "Total number of drift audits",
			},
			[]string{"result"},
		),

		driftPaths: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "drift_paths",
				Help:      "Number of differing config paths found by the last drift audit",
			},
		),

		rollbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rollbacks_total",
				Help:      "Total number of rollback attempts",
			},
			[]string{"result"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		sm.syncsTotal,
		sm.syncDuration,
		sm.validationsTotal,
		sm.driftChecksTotal,
		sm.driftPaths,
		sm.rollbacksTotal,
	)

	return sm
}

// RecordSync records a completed sync attempt.
func (sm *SyncMetrics) RecordSync(result string, duration time.Duration) {
	sm.syncsTotal.WithLabelValues(result).Inc()
	sm.syncDuration.Observe(duration.Seconds())
}

// RecordValidation records a validation attempt.
func (sm *SyncMetrics) RecordValidation(result string) {
	sm.validationsTotal.WithLabelValues(result).Inc()
}

// RecordDriftCheck records a drift audit and updates the drift gauge.
func (sm *SyncMetrics) RecordDriftCheck(result string, driftedPaths int) {
	sm.driftChecksTotal.WithLabelValues(result).Inc()
	if result != "error" {
		sm.driftPaths.Set(float64(driftedPaths))
	}
}

// RecordRollback records a rollback attempt.
func (sm *SyncMetrics) RecordRollback(result string) {
	sm.rollbacksTotal.WithLabelValues(result).Inc()
}
