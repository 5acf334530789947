package metrics

import (
	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessMetrics tracks metrics for the managed proxy process.
//
// Metrics:
//   - mercator_ganymede_health_checks_total: Health probes by state
//   - mercator_ganymede_process_up: 1 when the process is running
//   - mercator_ganymede_process_starts_total: Spawns of the managed process
//   - mercator_ganymede_process_exits_total: Exits by result
//   - mercator_ganymede_commands_total: External lifecycle commands by action and result
type ProcessMetrics struct {
	// Health probe count
	healthChecksTotal *prometheus.CounterVec

	// Process availability gauge
	up prometheus.Gauge

	// Spawn count (self mode)
	startsTotal prometheus.Counter

	// Exit count (self mode)
	exitsTotal *prometheus.CounterVec

	// External command count
	commandsTotal *prometheus.CounterVec
}

// NewProcessMetrics creates and registers process metrics with the provided registry.
func NewProcessMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProcessMetrics {
	pm := &ProcessMetrics{
		healthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_checks_total",
				Help:      "Total number of process health probes",
			},
			[]string{"state"},
		),

		up: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "process_up",
				Help:      "Whether the managed proxy process is running (1) or not (0)",
			},
		),

		startsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "process_starts_total",
				Help:      "Total number of managed process spawns",
			},
		),

		exitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "process_exits_total",
				Help:      "Total number of managed process exits",
			},
			[]string{"result"},
		),

		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "commands_total",
				Help:      "Total number of external lifecycle commands run",
			},
			[]string{"action", "result"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		pm.healthChecksTotal,
		pm.up,
		pm.startsTotal,
		pm.exitsTotal,
		pm.commandsTotal,
	)

	return pm
}

// RecordHealthCheck records a health probe outcome.
func (pm *ProcessMetrics) RecordHealthCheck(state string) {
	pm.healthChecksTotal.WithLabelValues(state).Inc()
}

// UpdateUp updates the process availability gauge.
func (pm *ProcessMetrics) UpdateUp(up bool) {
	if up {
		pm.up.Set(1)
	} else {
		pm.up.Set(0)
	}
}

// RecordStart records a spawn of the self-managed process.
func (pm *ProcessMetrics) RecordStart() {
	pm.startsTotal.Inc()
}

// RecordExit records an exit of the self-managed process.
func (pm *ProcessMetrics) RecordExit(clean bool) {
	result := "error"
	if clean {
		result = "clean"
	}
	pm.exitsTotal.WithLabelValues(result).Inc()
}

// RecordCommand records an external lifecycle command run.
func (pm *ProcessMetrics) RecordCommand(action, result string) {
	pm.commandsTotal.WithLabelValues(action, result).Inc()
}
