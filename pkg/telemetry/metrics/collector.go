package metrics

import (
	"net/http"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric the control plane emits and the
// registry they live in. Components record through it rather than holding
// metric handles themselves, so a disabled metrics config turns the whole
// surface into no-ops in one place.
//
// Label sets are closed except for admin config paths, which are
// caller-controlled and therefore capped by a per-process budget.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	syncMetrics      *SyncMetrics
	processMetrics   *ProcessMetrics
	adminMetrics     *AdminMetrics
	lifecycleMetrics *LifecycleMetrics
	storageMetrics   *StorageMetrics

	// paths caps the one unbounded label dimension.
	paths *pathBudget

	scrapeOnce    sync.Once
	scrapeHandler http.Handler
}

// NewCollector builds the metric families under the configured namespace
// and subsystem and registers them with registry. A nil registry gets a
// fresh private one, which tests lean on to keep samples isolated.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "mercator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "ganymede"
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		syncMetrics:      NewSyncMetrics(cfg, registry),
		processMetrics:   NewProcessMetrics(cfg, registry),
		adminMetrics:     NewAdminMetrics(cfg, registry),
		lifecycleMetrics: NewLifecycleMetrics(cfg, registry),
		storageMetrics:   NewStorageMetrics(cfg, registry),
		paths:            newPathBudget(1000),
	}
}

// RecordSync counts a completed sync attempt and observes its duration.
// The result label is one of "success", "rejected", or "error".
func (c *Collector) RecordSync(result string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.syncMetrics.RecordSync(result, duration)
}

// RecordValidation counts a validation gate outcome.
func (c *Collector) RecordValidation(result string) {
	if !c.config.Enabled {
		return
	}
	c.syncMetrics.RecordValidation(result)
}

// RecordDriftCheck counts a drift audit and the number of differing
// top-level config paths it found.
func (c *Collector) RecordDriftCheck(result string, driftedPaths int) {
	if !c.config.Enabled {
		return
	}
	c.syncMetrics.RecordDriftCheck(result, driftedPaths)
}

// RecordRollback counts a rollback attempt.
func (c *Collector) RecordRollback(result string) {
	if !c.config.Enabled {
		return
	}
	c.syncMetrics.RecordRollback(result)
}

// RecordHealthCheck counts a probe of the managed process. The state
// label carries the probe verdict, healthy, unreachable, or unhealthy.
func (c *Collector) RecordHealthCheck(state string) {
	if !c.config.Enabled {
		return
	}
	c.processMetrics.RecordHealthCheck(state)
}

// UpdateProcessUp moves the process availability gauge.
func (c *Collector) UpdateProcessUp(up bool) {
	if !c.config.Enabled {
		return
	}
	c.processMetrics.UpdateUp(up)
}

// RecordProcessStart counts a spawn of the self-managed process.
func (c *Collector) RecordProcessStart() {
	if !c.config.Enabled {
		return
	}
	c.processMetrics.RecordStart()
}

// RecordProcessExit counts an exit; clean means status zero.
func (c *Collector) RecordProcessExit(clean bool) {
	if !c.config.Enabled {
		return
	}
	c.processMetrics.RecordExit(clean)
}

// RecordCommand counts an external lifecycle command run, labeled by
// action and outcome.
func (c *Collector) RecordCommand(action, result string) {
	if !c.config.Enabled {
		return
	}
	c.processMetrics.RecordCommand(action, result)
}

// RecordAdminRequest observes a completed admin API request. The path is
// caller-controlled, so once the budget of distinct method and path pairs
// is spent, further paths aggregate under "other".
func (c *Collector) RecordAdminRequest(method, path string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.paths.admit(method + " " + path) {
		path = "other"
	}
	c.adminMetrics.RecordRequest(method, path, status, duration)
}

// RecordAdminError counts a failed admin API request by failure class,
// "connect", "protocol", or "http".
func (c *Collector) RecordAdminError(errorType string) {
	if !c.config.Enabled {
		return
	}
	c.adminMetrics.RecordError(errorType)
}

// RecordTransition counts an accepted lifecycle transition and moves the
// current-state gauge.
func (c *Collector) RecordTransition(from, to, event string) {
	if !c.config.Enabled {
		return
	}
	c.lifecycleMetrics.RecordTransition(from, to, event)
	c.lifecycleMetrics.UpdateState(to)
}

// UpdateLifecycleState sets the current-state gauge without recording a
// transition. Used for the initial state, which is assigned rather than
// transitioned into.
func (c *Collector) UpdateLifecycleState(state string) {
	if !c.config.Enabled {
		return
	}
	c.lifecycleMetrics.UpdateState(state)
}

// RecordSnapshotSave counts an autosave write.
func (c *Collector) RecordSnapshotSave(result string) {
	if !c.config.Enabled {
		return
	}
	c.storageMetrics.RecordSnapshotSave(result)
}

// RecordVersionRecorded counts a version appended to history.
func (c *Collector) RecordVersionRecorded(source string) {
	if !c.config.Enabled {
		return
	}
	c.storageMetrics.RecordVersionRecorded(source)
}

// RecordVersionsPruned counts versions removed by a prune run.
func (c *Collector) RecordVersionsPruned(count int) {
	if !c.config.Enabled {
		return
	}
	c.storageMetrics.RecordVersionsPruned(count)
}

// Registry exposes the underlying registry for callers that gather
// directly or attach their own collectors. The HTTP scrape surface is
// Handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// pathBudget bounds the distinct admin path labels this process will ever
// emit. Paths seen while budget remained keep their own label and the
// rest share one bucket, so a scripted walk of /config/... cannot grow
// the scrape without bound.
type pathBudget struct {
	mu    sync.Mutex
	limit int
	seen  map[string]struct{}
}

func newPathBudget(limit int) *pathBudget {
	return &pathBudget{limit: limit, seen: make(map[string]struct{}, 64)}
}

// admit reports whether key may keep its own label, reserving budget for
// it on first sight. Admission is sticky.
func (b *pathBudget) admit(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[key]; ok {
		return true
	}
	if len(b.seen) >= b.limit {
		return false
	}
	b.seen[key] = struct{}{}
	return true
}

func (b *pathBudget) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}
