package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/syncer"
)

// auditScheduler owns the cron-driven background jobs: periodic drift
// audits and history pruning. Invalid schedules fail construction, so a
// typo surfaces at boot instead of as a job that never runs.
type auditScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// newAuditScheduler builds the scheduler from the configured cron
// expressions. Returns nil when no job is scheduled.
func newAuditScheduler(m *Manager) (*auditScheduler, error) {
	c := cron.New()
	jobs := 0

	if spec := m.config.Sync.DriftSchedule; spec != "" {
		if _, err := c.AddFunc(spec, m.runDriftAudit); err != nil {
			return nil, fmt.Errorf("invalid drift schedule %q: %w", spec, err)
		}
		jobs++
	}
	if spec := m.config.Storage.History.PruneSchedule; spec != "" && m.history != nil {
		if _, err := c.AddFunc(spec, m.runHistoryPrune); err != nil {
			return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
		}
		jobs++
	}

	if jobs == 0 {
		return nil, nil
	}
	return &auditScheduler{cron: c, logger: m.logger}, nil
}

func (a *auditScheduler) start() {
	a.cron.Start()
	a.logger.Info("schedules started", "jobs", len(a.cron.Entries()))
}

// stop halts scheduling and waits for any running job to finish.
func (a *auditScheduler) stop() {
	<-a.cron.Stop().Done()
}

// runDriftAudit is the scheduled drift check. Drift itself is reported by
// the engine's events and metrics; only failures and skips are logged here.
func (m *Manager) runDriftAudit() {
	report, err := m.CheckDrift(context.Background())
	if err != nil {
		if errors.Is(err, syncer.ErrNoConfig) {
			m.logger.Debug("drift audit skipped, no configuration")
			return
		}
		m.logger.Error("drift audit failed", "error", err)
		return
	}
	if report.InSync() {
		m.logger.Debug("drift audit clean")
	}
}

// runHistoryPrune trims the version history to the configured size.
func (m *Manager) runHistoryPrune() {
	keep := m.config.Storage.History.Keep
	removed, err := m.history.Prune(context.Background(), keep)
	if err != nil {
		m.logger.Error("history prune failed", "error", err)
		return
	}
	if removed > 0 {
		m.logger.Info("history pruned", "removed", removed, "keep", keep)
		if m.collector != nil {
			m.collector.RecordVersionsPruned(removed)
		}
	}
}
