package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/admin"
	"mercator-hq/ganymede/pkg/lifecycle"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/telemetry/events"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

const (
	defaultHealthInterval = 30 * time.Second
	defaultRecheckDelay   = time.Second
)

// healthLoop polls the admin interface and feeds status transitions into
// the lifecycle machine. Both supervisor variants run one; they differ only
// in whether a process is spawned around it.
type healthLoop struct {
	api      *admin.API
	machine  *lifecycle.Machine
	engine   *syncer.Engine
	autoSync bool
	interval time.Duration
	recheck  time.Duration
	logger   *slog.Logger

	metrics *metrics.Collector
	emitter *events.Emitter

	// kick reschedules the next probe sooner than the interval, used
	// after start and restart commands.
	kick chan time.Duration

	stopCh chan struct{}
	doneCh chan struct{}

	mu         sync.Mutex
	status     Status
	autoSynced bool
	polling    bool
}

func newHealthLoop(api *admin.API, machine *lifecycle.Machine, engine *syncer.Engine, autoSync bool, interval, recheck time.Duration, logger *slog.Logger) *healthLoop {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	if recheck <= 0 {
		recheck = defaultRecheckDelay
	}
	return &healthLoop{
		api:      api,
		machine:  machine,
		engine:   engine,
		autoSync: autoSync,
		interval: interval,
		recheck:  recheck,
		logger:   logger,
		kick:     make(chan time.Duration, 1),
		status:   StatusUnknown,
	}
}

// start launches the polling goroutine. It is not idempotent; the owning
// supervisor guards against double starts.
func (l *healthLoop) start() {
	l.mu.Lock()
	if l.polling {
		l.mu.Unlock()
		return
	}
	l.polling = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	go l.run()
}

// halt stops the polling goroutine and waits for it to finish.
func (l *healthLoop) halt() {
	l.mu.Lock()
	if !l.polling {
		l.mu.Unlock()
		return
	}
	l.polling = false
	stop := l.stopCh
	done := l.doneCh
	l.mu.Unlock()

	close(stop)
	<-done
}

func (l *healthLoop) run() {
	defer close(l.doneCh)

	// Probe immediately so boot does not wait a full interval for the
	// first status.
	l.checkOnce(context.Background())

	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-timer.C:
			l.checkOnce(context.Background())
			timer.Reset(l.interval)
		case d := <-l.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
		}
	}
}

// kickAfter schedules the next probe after d instead of the full interval.
func (l *healthLoop) kickAfter(d time.Duration) {
	select {
	case l.kick <- d:
	default:
	}
}

// checkOnce runs a single probe and applies its outcome. The admin client
// bounds the probe with its own timeout.
func (l *healthLoop) checkOnce(ctx context.Context) {
	h := l.api.HealthCheck(ctx)
	next := statusFromHealth(h)

	if l.metrics != nil {
		l.metrics.RecordHealthCheck(string(h.State))
		l.metrics.UpdateProcessUp(next == StatusRunning)
	}

	l.mu.Lock()
	prev := l.status
	l.status = next
	l.mu.Unlock()

	if next == prev {
		return
	}

	l.logger.Info("process status changed",
		"from", string(prev),
		"to", string(next),
		"detail", h.Detail,
	)
	l.emitter.Emit(events.HealthChanged{Previous: string(prev), Current: string(next)})

	switch {
	case next == StatusRunning:
		l.fire(lifecycle.EventHealthOK)
		l.maybeAutoSync(ctx)
	case prev == StatusRunning:
		l.fire(lifecycle.EventHealthFail)
	}
}

// maybeAutoSync pushes the desired configuration the first time the process
// is seen running, provided nothing has synced yet. The attempt happens at
// most once per supervisor lifetime, whatever its outcome.
func (l *healthLoop) maybeAutoSync(ctx context.Context) {
	if !l.autoSync {
		return
	}

	l.mu.Lock()
	if l.autoSynced {
		l.mu.Unlock()
		return
	}
	l.autoSynced = true
	l.mu.Unlock()

	if l.engine.Stats().SyncCount > 0 {
		return
	}

	l.logger.Info("process reachable for the first time, pushing configuration")
	if err := l.engine.Sync(ctx, nil); err != nil {
		if errors.Is(err, syncer.ErrNoConfig) {
			l.logger.Debug("no configuration to push on first contact")
			return
		}
		l.logger.Warn("initial sync failed", "error", err)
	}
}

// Status returns the last observed process status.
func (l *healthLoop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// fire attempts a lifecycle transition. Events the current state has no
// edge for are dropped quietly.
func (l *healthLoop) fire(ev lifecycle.Event) {
	if _, err := l.machine.Fire(ev); err != nil {
		l.logger.Debug("lifecycle event not accepted",
			"event", string(ev),
			"error", err,
		)
	}
}
