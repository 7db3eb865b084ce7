package scenario

import (
	"fmt"
	"strings"

	"github.com/probst/tangle/internal/payload"
)

// Evaluate checks one assertion against a run's result, returning a
// descriptive error when it does not hold.
func Evaluate(a *Assertion, res *Result) error {
	switch a.Type {
	case AssertFinalState:
		return evalFinalState(a, res)
	case AssertExecOrder:
		return evalExecOrder(a, res)
	case AssertExecContains:
		return evalExecContains(a, res)
	case AssertExecCount:
		return evalExecCount(a, res)
	case AssertTaskFailed:
		return evalTaskFailed(a, res)
	case AssertBacklogEmpty:
		if res.Backlog != 0 {
			return fmt.Errorf("backlog_empty: %d tasks remain scheduled", res.Backlog)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func evalFinalState(a *Assertion, res *Result) error {
	raw, ok := res.FinalState[a.Key]
	if !ok {
		return fmt.Errorf("final_state: component %q is absent", a.Key)
	}
	got, ok := raw.(payload.Value)
	if !ok {
		return fmt.Errorf("final_state: component %q holds a non-payload value", a.Key)
	}
	want, err := payload.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("final_state %q: %w", a.Key, err)
	}
	if payload.MustComponentDigest(got) != payload.MustComponentDigest(want) {
		gb, _ := payload.MarshalCanonical(got)
		wb, _ := payload.MarshalCanonical(want)
		return fmt.Errorf("final_state %q: got %s, want %s", a.Key, gb, wb)
	}
	return nil
}

// evalExecOrder checks the labels appear in the trace in the given
// relative order. Other executions may interleave; each label matches its
// earliest occurrence after the previous match.
func evalExecOrder(a *Assertion, res *Result) error {
	next := 0
	for _, ev := range res.Trace {
		if next < len(a.Labels) && ev.Label == a.Labels[next] {
			next++
		}
	}
	if next != len(a.Labels) {
		return fmt.Errorf("exec_order: %q did not execute in order after %v",
			a.Labels[next], a.Labels[:next])
	}
	return nil
}

func evalExecContains(a *Assertion, res *Result) error {
	for _, ev := range res.Trace {
		if ev.Label == a.Label {
			return nil
		}
	}
	return fmt.Errorf("exec_contains: %q never executed", a.Label)
}

func evalExecCount(a *Assertion, res *Result) error {
	n := 0
	for _, ev := range res.Trace {
		if ev.Label == a.Label {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("exec_count: %q executed %d times, want %d", a.Label, n, a.Count)
	}
	return nil
}

func evalTaskFailed(a *Assertion, res *Result) error {
	for _, ev := range res.Trace {
		if ev.Label != a.Label || ev.Error == "" {
			continue
		}
		if a.Message == "" || strings.Contains(ev.Error, a.Message) {
			return nil
		}
	}
	if a.Message != "" {
		return fmt.Errorf("task_failed: %q did not fail with message containing %q", a.Label, a.Message)
	}
	return fmt.Errorf("task_failed: %q did not fail", a.Label)
}
