package metrics

import (
	"sync"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics tracks metrics for the lifecycle state machine.
//
// Metrics:
//   - mercator_ganymede_lifecycle_state: 1 for the current state, 0 otherwise
//   - mercator_ganymede_lifecycle_transitions_total: Accepted transitions by from, to, event
type LifecycleMetrics struct {
	// Current state gauge, one series per observed state
	state *prometheus.GaugeVec

	// Accepted transition count
	transitionsTotal *prometheus.CounterVec

	// lastState remembers which series to zero on the next update
	mu        sync.Mutex
	lastState string
}

// NewLifecycleMetrics creates and registers lifecycle metrics with the provided registry.
func NewLifecycleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LifecycleMetrics {
	lm := &LifecycleMetrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lifecycle_state",
				Help:      "Current lifecycle state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),

		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lifecycle_transitions_total",
				Help:      "Total number of accepted lifecycle transitions",
			},
			[]string{"from", "to", "event"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		lm.state,
		lm.transitionsTotal,
	)

	return lm
}

// RecordTransition records an accepted lifecycle transition.
func (lm *LifecycleMetrics) RecordTransition(from, to, event string) {
	lm.transitionsTotal.WithLabelValues(from, to, event).Inc()
}

// UpdateState moves the current-state gauge to the given state, zeroing
// the previously active series.
func (lm *LifecycleMetrics) UpdateState(state string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.lastState != "" && lm.lastState != state {
		lm.state.WithLabelValues(lm.lastState).Set(0)
	}
	lm.state.WithLabelValues(state).Set(1)
	lm.lastState = state
}
