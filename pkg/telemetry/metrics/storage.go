package metrics

import (
	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics tracks metrics for snapshot autosaves and version history.
//
// Metrics:
//   - mercator_ganymede_snapshot_saves_total: Autosave writes by result
//   - mercator_ganymede_versions_recorded_total: Versions appended to history by source
//   - mercator_ganymede_versions_pruned_total: Versions removed by pruning
type StorageMetrics struct {
	// Autosave write count
	snapshotSavesTotal *prometheus.CounterVec

	// History append count
	versionsRecordedTotal *prometheus.CounterVec

	// History prune count
	versionsPrunedTotal prometheus.Counter
}

// NewStorageMetrics creates and registers storage metrics with the provided registry.
func NewStorageMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StorageMetrics {
	sm := &StorageMetrics{
		snapshotSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "snapshot_saves_total",
				Help:      "Total number of snapshot autosave writes",
			},
			[]string{"result"},
		),

		versionsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "versions_recorded_total",
				Help:      "Total number of config versions appended to history",
			},
			[]string{"source"},
		),

		versionsPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "versions_pruned_total",
				Help:      "Total number of config versions removed by pruning",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		sm.snapshotSavesTotal,
		sm.versionsRecordedTotal,
		sm.versionsPrunedTotal,
	)

	return sm
}

// RecordSnapshotSave records an autosave write.
func (sm *StorageMetrics) RecordSnapshotSave(result string) {
	sm.snapshotSavesTotal.WithLabelValues(result).Inc()
}

// RecordVersionRecorded records a version appended to history.
func (sm *StorageMetrics) RecordVersionRecorded(source string) {
	sm.versionsRecordedTotal.WithLabelValues(source).Inc()
}

// RecordVersionsPruned records versions removed by a prune run.
func (sm *StorageMetrics) RecordVersionsPruned(count int) {
	if count > 0 {
		sm.versionsPrunedTotal.Add(float64(count))
	}
}
