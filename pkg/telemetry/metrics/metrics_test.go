package metrics

import (
	"fmt"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testCollectorConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "ganymede",
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testCollectorConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("expected non-nil collector")
	}
	if collector.config != cfg {
		t.Error("collector config not set correctly")
	}
	if collector.registry != registry {
		t.Error("collector registry not set correctly")
	}
}

func TestCollector_NewCollector_NilRegistry(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), nil)

	if collector.Registry() == nil {
		t.Error("expected a registry to be created")
	}
}

func TestCollector_NewCollector_NamespaceDefaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, prometheus.NewRegistry())

	if cfg.Namespace != "mercator" {
		t.Errorf("expected default namespace %q, got %q", "mercator", cfg.Namespace)
	}
	if cfg.Subsystem != "ganymede" {
		t.Errorf("expected default subsystem %q, got %q", "ganymede", cfg.Subsystem)
	}
}

func TestCollector_RecordSync(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())

	tests := []struct {
		name     string
		result   string
		duration time.Duration
	}{
		{name: "success", result: "success", duration: 120 * time.Millisecond},
		{name: "rejected by validation", result: "rejected", duration: 40 * time.Millisecond},
		{name: "load error", result: "error", duration: 5 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordSync(tt.result, tt.duration)

			count := testutil.ToFloat64(collector.syncMetrics.syncsTotal.WithLabelValues(tt.result))
			if count < 1 {
				t.Errorf("expected sync counter >= 1, got %f", count)
			}
		})
	}
}

func TestCollector_DriftMetrics(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())

	t.Run("drift found updates gauge", func(t *testing.T) {
		collector.RecordDriftCheck("drift", 3)

		count := testutil.ToFloat64(collector.syncMetrics.driftChecksTotal.WithLabelValues("drift"))
		if count < 1 {
			t.Errorf("expected drift check counter >= 1, got %f", count)
		}
		paths := testutil.ToFloat64(collector.syncMetrics.driftPaths)
		if paths != 3 {
			t.Errorf("expected drift paths gauge 3, got %f", paths)
		}
	})

	t.Run("clean check resets gauge", func(t *testing.T) {
		collector.RecordDriftCheck("clean", 0)

		paths := testutil.ToFloat64(collector.syncMetrics.driftPaths)
		if paths != 0 {
			t.Errorf("expected drift paths gauge 0, got %f", paths)
		}
	})

	t.Run("error check preserves gauge", func(t *testing.T) {
		collector.RecordDriftCheck("drift", 5)
		collector.RecordDriftCheck("error", 0)

		paths := testutil.ToFloat64(collector.syncMetrics.driftPaths)
		if paths != 5 {
			t.Errorf("expected drift paths gauge 5 after error, got %f", paths)
		}
	})
}

func TestCollector_ProcessMetrics(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())

	t.Run("health check", func(t *testing.T) {
		collector.RecordHealthCheck("healthy")
		count := testutil.ToFloat64(collector.processMetrics.healthChecksTotal.WithLabelValues("healthy"))
		if count < 1 {
			t.Errorf("expected health check count >= 1, got %f", count)
		}
	})

	t.Run("process up gauge", func(t *testing.T) {
		collector.UpdateProcessUp(true)
		up := testutil.ToFloat64(collector.processMetrics.up)
		if up != 1.0 {
			t.Errorf("expected up=1.0, got %f", up)
		}

		collector.UpdateProcessUp(false)
		up = testutil.ToFloat64(collector.processMetrics.up)
		if up != 0.0 {
			t.Errorf("expected up=0.0, got %f", up)
		}
	})

	t.Run("starts and exits", func(t *testing.T) {
		collector.RecordProcessStart()
		collector.RecordProcessExit(true)
		collector.RecordProcessExit(false)

		starts := testutil.ToFloat64(collector.processMetrics.startsTotal)
		if starts < 1 {
			t.Errorf("expected starts >= 1, got %f", starts)
		}
		clean := testutil.ToFloat64(collector.processMetrics.exitsTotal.WithLabelValues("clean"))
		if clean != 1 {
			t.Errorf("expected 1 clean exit, got %f", clean)
		}
		dirty := testutil.ToFloat64(collector.processMetrics.exitsTotal.WithLabelValues("error"))
		if dirty != 1 {
			t.Errorf("expected 1 error exit, got %f", dirty)
		}
	})

	t.Run("commands", func(t *testing.T) {
		collector.RecordCommand("restart", "success")
		count := testutil.ToFloat64(collector.processMetrics.commandsTotal.WithLabelValues("restart", "success"))
		if count < 1 {
			t.Errorf("expected command count >= 1, got %f", count)
		}
	})
}

func TestCollector_AdminMetrics(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())

	t.Run("record request", func(t *testing.T) {
		collector.RecordAdminRequest("POST", "/load", 200, 45*time.Millisecond)
		count := testutil.ToFloat64(collector.adminMetrics.requestsTotal.WithLabelValues("POST", "/load", "200"))
		if count < 1 {
			t.Errorf("expected request count >= 1, got %f", count)
		}
	})

	t.Run("record error", func(t *testing.T) {
		collector.RecordAdminError("connect")
		count := testutil.ToFloat64(collector.adminMetrics.errorsTotal.WithLabelValues("connect"))
		if count < 1 {
			t.Errorf("expected error count >= 1, got %f", count)
		}
	})
}

func TestCollector_AdminPathCardinality(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())
	collector.paths = newPathBudget(2)

	collector.RecordAdminRequest("GET", "/config/a", 200, time.Millisecond)
	collector.RecordAdminRequest("GET", "/config/b", 200, time.Millisecond)
	collector.RecordAdminRequest("GET", "/config/c", 200, time.Millisecond)

	overflow := testutil.ToFloat64(collector.adminMetrics.requestsTotal.WithLabelValues("GET", "other", "200"))
	if overflow != 1 {
		t.Errorf("expected overflow path aggregated to other, got %f", overflow)
	}
}

func TestCollector_LifecycleMetrics(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())

	collector.UpdateLifecycleState("unconfigured")
	collector.RecordTransition("unconfigured", "configured", "config_set")

	count := testutil.ToFloat64(collector.lifecycleMetrics.transitionsTotal.WithLabelValues("unconfigured", "configured", "config_set"))
	if count != 1 {
		t.Errorf("expected 1 transition, got %f", count)
	}

	current := testutil.ToFloat64(collector.lifecycleMetrics.state.WithLabelValues("configured"))
	if current != 1 {
		t.Errorf("expected configured state gauge 1, got %f", current)
	}
	previous := testutil.ToFloat64(collector.lifecycleMetrics.state.WithLabelValues("unconfigured"))
	if previous != 0 {
		t.Errorf("expected unconfigured state gauge 0, got %f", previous)
	}
}

func TestCollector_StorageMetrics(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())

	collector.RecordSnapshotSave("success")
	collector.RecordVersionRecorded("sync")
	collector.RecordVersionsPruned(4)
	collector.RecordVersionsPruned(0)

	saves := testutil.ToFloat64(collector.storageMetrics.snapshotSavesTotal.WithLabelValues("success"))
	if saves != 1 {
		t.Errorf("expected 1 save, got %f", saves)
	}
	recorded := testutil.ToFloat64(collector.storageMetrics.versionsRecordedTotal.WithLabelValues("sync"))
	if recorded != 1 {
		t.Errorf("expected 1 recorded version, got %f", recorded)
	}
	pruned := testutil.ToFloat64(collector.storageMetrics.versionsPrunedTotal)
	if pruned != 4 {
		t.Errorf("expected 4 pruned versions, got %f", pruned)
	}
}

func TestCollector_DisabledRecordsNothing(t *testing.T) {
	cfg := testCollectorConfig()
	cfg.Enabled = false
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	collector.RecordSync("success", time.Millisecond)
	collector.RecordHealthCheck("healthy")
	collector.RecordAdminRequest("GET", "/config/", 200, time.Millisecond)
	collector.RecordTransition("configured", "synced", "sync_success")
	collector.RecordSnapshotSave("success")

	count := testutil.ToFloat64(collector.syncMetrics.syncsTotal.WithLabelValues("success"))
	if count != 0 {
		t.Errorf("expected no sync samples when disabled, got %f", count)
	}
}

func TestPathBudget(t *testing.T) {
	budget := newPathBudget(3)

	for i := 0; i < 3; i++ {
		if !budget.admit(fmt.Sprintf("GET /config/%d", i)) {
			t.Errorf("expected key %d to be admitted", i)
		}
	}

	if budget.admit("GET /config/overflow") {
		t.Error("expected overflow key to be refused")
	}

	// Admission is sticky once the budget is spent
	if !budget.admit("GET /config/0") {
		t.Error("expected admitted key to stay admitted")
	}

	if budget.size() != 3 {
		t.Errorf("admitted keys = %d, want 3", budget.size())
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testCollectorConfig(), prometheus.NewRegistry())
	collector.RecordSync("success", time.Millisecond)

	if collector.Handler() == nil {
		t.Fatal("expected non-nil handler")
	}
	// A second call must reuse the cached handler rather than register
	// the scrape instrumentation again.
	collector.Handler()

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "test_ganymede_syncs_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected test_ganymede_syncs_total in gathered families")
	}
}
