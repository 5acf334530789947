package health

import (
	"context"
	"sync"
	"time"
)

// Status words the checker reports.
const (
	statusOK        = "ok"
	statusReady     = "ready"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of probing a single component.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the failure detail for unhealthy components.
	Message string `json:"message,omitempty"`

	// Duration is how long the probe took.
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Status aggregates component probes into one readiness verdict.
type Status struct {
	// Status is "ok" for liveness, "ready" or "degraded" for readiness.
	Status string `json:"status"`

	// Checks holds the per-component outcomes readiness was folded from.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the evaluation ran.
	Timestamp time.Time `json:"timestamp"`
}

// Checker runs named component probes. The manager registers one per
// dependency it cares about, the admin endpoint, the config store, and
// the history database when enabled. Probes run concurrently on every
// readiness evaluation, each under its own deadline.
type Checker struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New returns a Checker whose probes are cut off after timeout. A zero
// timeout means 5 seconds.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces the probe for a component.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.mu.Lock()
	c.checks[name] = fn
	c.mu.Unlock()
}

// UnregisterCheck removes a component's probe.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	delete(c.checks, name)
	c.mu.Unlock()
}

// CheckCount returns the number of registered probes.
func (c *Checker) CheckCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.checks)
}

// CheckLiveness answers the liveness probe. It only proves the process is
// serving HTTP, so it consults nothing.
func (c *Checker) CheckLiveness(ctx context.Context) Status {
	return Status{Status: statusOK, Timestamp: time.Now()}
}

// CheckReadiness probes every registered component concurrently and folds
// the outcomes into one verdict. Any failing component degrades the whole
// Status; with nothing registered the checker reports ready, since there
// is nothing to wait for.
func (c *Checker) CheckReadiness(ctx context.Context) Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	fns := make([]CheckFunc, 0, len(c.checks))
	for name, fn := range c.checks {
		names = append(names, name)
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	results := make([]CheckResult, len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i := range fns {
		go func(i int) {
			defer wg.Done()
			results[i] = c.probe(ctx, fns[i])
		}(i)
	}
	wg.Wait()

	out := Status{
		Status:    statusReady,
		Checks:    make(map[string]CheckResult, len(names)),
		Timestamp: time.Now(),
	}
	for i, name := range names {
		out.Checks[name] = results[i]
		if results[i].Status != statusOK {
			out.Status = statusDegraded
		}
	}
	return out
}

// probe runs one check under the configured deadline. A check that
// ignores its context is abandoned at the deadline and reported as
// unhealthy; the goroutine is left to finish on its own.
func (c *Checker) probe(ctx context.Context, fn CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() {
		res := CheckResult{Status: statusOK}
		if err := fn(ctx); err != nil {
			res = CheckResult{Status: statusUnhealthy, Message: err.Error()}
		}
		res.Duration = time.Since(start)
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return CheckResult{
			Status:   statusUnhealthy,
			Message:  "health check timeout",
			Duration: time.Since(start),
		}
	}
}
