package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"mercator-hq/ganymede/pkg/caddyfile"
	"mercator-hq/ganymede/pkg/telemetry/events"
)

// DriftReport describes how the running configuration differs from the
// desired one, as set operations over top-level document keys.
type DriftReport struct {
	// OnlyInDesired lists top-level keys the desired configuration has
	// and the runtime lacks.
	OnlyInDesired []string `json:"only_in_desired,omitempty"`

	// OnlyInRuntime lists top-level keys the runtime has and the desired
	// configuration lacks.
	OnlyInRuntime []string `json:"only_in_runtime,omitempty"`

	// Changed lists top-level keys present on both sides with different
	// values.
	Changed []string `json:"changed,omitempty"`
}

// InSync reports whether the runtime configuration matches the desired one.
func (r *DriftReport) InSync() bool {
	return len(r.OnlyInDesired) == 0 && len(r.OnlyInRuntime) == 0 && len(r.Changed) == 0
}

// Paths returns the total number of differing top-level keys.
func (r *DriftReport) Paths() int {
	return len(r.OnlyInDesired) + len(r.OnlyInRuntime) + len(r.Changed)
}

// CheckDrift adapts the current configuration text, fetches what the process
// is actually running, and compares the two after stripping volatile keys.
// The call is purely observational: neither the lifecycle machine nor the
// rollback snapshot is touched, so operators and schedulers can run it as
// often as they like. An empty store returns ErrNoConfig.
func (e *Engine) CheckDrift(ctx context.Context) (*DriftReport, error) {
	e.driftMu.Lock()
	defer e.driftMu.Unlock()

	cfg := e.store.Get()
	if cfg.Empty() {
		return nil, ErrNoConfig
	}

	start := time.Now()

	desired, err := e.adapter.Adapt(ctx, caddyfile.Serialize(cfg))
	if err != nil {
		e.recordDriftCheck("error", 0)
		return nil, fmt.Errorf("adapting desired configuration: %w", err)
	}

	runtime, err := e.api.GetConfig(ctx, "")
	if err != nil {
		e.recordDriftCheck("error", 0)
		return nil, fmt.Errorf("fetching runtime configuration: %w", err)
	}

	report, err := diffDocuments(desired, runtime)
	if err != nil {
		e.recordDriftCheck("error", 0)
		return nil, err
	}

	if report.InSync() {
		e.recordDriftCheck("clean", 0)
		e.logger.Debug("drift check clean",
			"duration_ms", time.Since(start).Milliseconds())
		return report, nil
	}

	e.recordDriftCheck("drift", report.Paths())
	e.emitter.Emit(events.DriftDetected{Paths: report.Paths()})
	e.logger.Warn("configuration drift detected",
		"only_in_desired", report.OnlyInDesired,
		"only_in_runtime", report.OnlyInRuntime,
		"changed", report.Changed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// volatileKeys are transport-level keys the process attaches to served
// configuration. They never represent drift.
var volatileKeys = map[string]bool{
	"etag": true,
	"@id":  true,
}

// diffDocuments compares two configuration documents after normalization.
func diffDocuments(desired, runtime json.RawMessage) (*DriftReport, error) {
	var want, have any
	if err := json.Unmarshal(desired, &want); err != nil {
		return nil, fmt.Errorf("decoding desired configuration: %w", err)
	}
	if len(runtime) > 0 {
		if err := json.Unmarshal(runtime, &have); err != nil {
			return nil, fmt.Errorf("decoding runtime configuration: %w", err)
		}
	}

	want = normalize(want)
	have = normalize(have)

	report := &DriftReport{}
	if reflect.DeepEqual(want, have) {
		return report, nil
	}

	wantObj, wantIsObj := want.(map[string]any)
	haveObj, haveIsObj := have.(map[string]any)
	if !wantIsObj && !haveIsObj {
		// Neither side is an object and they differ. No keys to name,
		// so the whole document is the changed unit.
		report.Changed = []string{"(document)"}
		return report, nil
	}

	for key, wv := range wantObj {
		hv, ok := haveObj[key]
		switch {
		case !ok:
			report.OnlyInDesired = append(report.OnlyInDesired, key)
		case !reflect.DeepEqual(wv, hv):
			report.Changed = append(report.Changed, key)
		}
	}
	for key := range haveObj {
		if _, ok := wantObj[key]; !ok {
			report.OnlyInRuntime = append(report.OnlyInRuntime, key)
		}
	}

	sort.Strings(report.OnlyInDesired)
	sort.Strings(report.OnlyInRuntime)
	sort.Strings(report.Changed)
	return report, nil
}

// normalize strips volatile keys recursively so comparison sees only
// meaningful structure.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, val := range t {
			if volatileKeys[key] {
				continue
			}
			out[key] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
