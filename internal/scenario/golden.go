package scenario

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/probst/tangle/internal/payload"
)

// Snapshot renders a run result as canonical JSON for golden comparison.
// Identical runs produce byte-identical snapshots.
func Snapshot(name string, res *Result) ([]byte, error) {
	return payload.MarshalCanonical(SnapshotValue(name, res))
}

// SnapshotValue renders a run result as a payload tree. The replay
// command digests it to compare runs.
func SnapshotValue(name string, res *Result) payload.Map {
	trace := make(payload.List, len(res.Trace))
	for i, ev := range res.Trace {
		trace[i] = eventPayload(ev)
	}

	snap := payload.Map{
		"scenario_name": payload.String(name),
		"trace":         trace,
		"backlog":       payload.Int(res.Backlog),
	}
	if len(res.FinalState) > 0 {
		state := make(payload.Map, len(res.FinalState))
		for k, v := range res.FinalState {
			if pv, ok := v.(payload.Value); ok {
				state[k] = pv
			}
		}
		snap["final_state"] = state
	}
	return snap
}

func eventPayload(ev TraceEvent) payload.Map {
	m := payload.Map{
		"seq":      payload.Int(ev.Seq),
		"label":    payload.String(ev.Label),
		"token":    payload.String(ev.Token),
		"priority": payload.Int(ev.Priority),
	}
	if len(ev.Reads) > 0 {
		m["reads"] = stringList(ev.Reads)
	}
	if len(ev.Writes) > 0 {
		m["writes"] = stringList(ev.Writes)
	}
	if len(ev.Changed) > 0 {
		m["changed"] = stringList(ev.Changed)
	}
	if ev.Spawned > 0 {
		m["spawned"] = payload.Int(ev.Spawned)
	}
	if ev.Error != "" {
		m["error"] = payload.String(ev.Error)
	}
	if ev.Cascade != "" {
		m["cascade_error"] = payload.String(ev.Cascade)
	}
	return m
}

func stringList(ss []string) payload.List {
	sorted := append([]string(nil), ss...)
	sort.Strings(sorted)
	l := make(payload.List, len(sorted))
	for i, s := range sorted {
		l[i] = payload.String(s)
	}
	return l
}

// RunWithGolden runs the scenario and compares its snapshot against
// testdata/golden/<name>.golden. Regenerate with go test -update.
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	r, err := NewRunner(s)
	if err != nil {
		return nil, err
	}
	res, err := r.Run()
	if err != nil {
		return nil, err
	}

	snap, err := Snapshot(s.Name, res)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, snap)
	return res, nil
}
