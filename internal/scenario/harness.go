package scenario

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/model"
	"github.com/probst/tangle/internal/payload"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
	"github.com/probst/tangle/internal/testutil"
)

// settleCap bounds settle steps so a runaway cascade fails the scenario
// instead of looping forever.
const settleCap = 10000

// Run builds a runner for s and executes it.
func Run(s *Scenario) (*Result, error) {
	r, err := NewRunner(s)
	if err != nil {
		return nil, err
	}
	return r.Run()
}

// Runner executes one scenario against a real Model.
type Runner struct {
	scenario *Scenario
	model    *model.Model

	// templates maps label to template so trace events can report the
	// declared sets of observer-emitted tasks too.
	templates map[string]*TaskTemplate

	trace []TraceEvent
}

// NewRunner builds the model for s: quiet logger, sequential cascade
// tokens, seeded store, registered observers. Run is then a pure step
// replay.
func NewRunner(s *Scenario) (*Runner, error) {
	d, err := s.discipline()
	if err != nil {
		return nil, err
	}

	opts := []model.Option{
		model.WithDiscipline(d),
		model.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		model.WithTokens(testutil.NewSequenceSource("c")),
	}
	if s.StrictReads {
		opts = append(opts, model.WithStrictReads())
	}
	if s.MaxCascadeSteps > 0 {
		opts = append(opts, model.WithMaxCascadeSteps(s.MaxCascadeSteps))
	}
	if len(s.Seed) > 0 {
		seed := make(map[key.Key]any, len(s.Seed))
		for k, v := range s.Seed {
			pv, err := payload.FromAny(v)
			if err != nil {
				return nil, fmt.Errorf("seed %q: %w", k, err)
			}
			seed[key.Key(k)] = pv
		}
		opts = append(opts, model.WithSeed(seed))
	}

	m, err := model.New(opts...)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		scenario:  s,
		model:     m,
		templates: make(map[string]*TaskTemplate),
	}
	r.indexTemplates()

	for i := range s.Observers {
		ob := &s.Observers[i]
		if err := m.RegisterObserver(ob.Name, r.observerFunc(ob)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run executes the step script and evaluates the assertions.
func (r *Runner) Run() (*Result, error) {
	for i, st := range r.scenario.Steps {
		if err := r.runStep(st); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	res := NewResult()
	res.Trace = r.trace
	res.Backlog = r.model.Backlog()
	r.captureFinalState(res)

	for _, a := range r.scenario.Assertions {
		if err := Evaluate(&a, res); err != nil {
			res.AddError(err.Error())
		}
	}
	return res, nil
}

func (r *Runner) runStep(st Step) error {
	switch {
	case st.Schedule != nil:
		return r.model.Schedule(buildTask(st.Schedule))
	case st.Process > 0:
		for i := 0; i < st.Process; i++ {
			if _, err := r.step(); err != nil {
				return err
			}
		}
		return nil
	case st.Settle:
		for i := 0; i < settleCap; i++ {
			ran, err := r.step()
			if err != nil {
				return err
			}
			if !ran {
				return nil
			}
		}
		return fmt.Errorf("scenario did not settle within %d steps", settleCap)
	default:
		return fmt.Errorf("step sets no action")
	}
}

// step runs one ProcessTask and records its trace event.
func (r *Runner) step() (bool, error) {
	res, err := r.model.ProcessTask()
	if err != nil {
		return false, err
	}
	if !res.Ran {
		return false, nil
	}

	ev := TraceEvent{
		Seq:      res.Seq,
		Label:    res.Label,
		Token:    res.Token,
		Priority: int(res.Priority),
		Changed:  res.Changed.Strings(),
		Spawned:  res.Spawned,
	}
	if tt, ok := r.templates[res.Label]; ok {
		ev.Reads = append([]string(nil), tt.Reads...)
		ev.Writes = append([]string(nil), tt.Writes...)
	}
	if res.TaskErr != nil {
		ev.Error = res.TaskErr.Error()
	}
	if res.CascadeErr != nil {
		ev.Cascade = res.CascadeErr.Error()
	}
	r.trace = append(r.trace, ev)
	return true, nil
}

func (r *Runner) captureFinalState(res *Result) {
	st := r.model.Store()
	for _, k := range st.Keys() {
		raw, ok := st.Get(k)
		if !ok {
			continue
		}
		pv, ok := raw.(payload.Value)
		if !ok {
			continue
		}
		res.FinalState[string(k)] = pv
	}
}

// observerFunc adapts an ObserverSpec into a model.Observer that emits
// its templates when any watched key changed.
func (r *Runner) observerFunc(ob *ObserverSpec) model.Observer {
	watch := key.NewSet()
	for _, w := range ob.Watch {
		watch.Add(key.Key(w))
	}
	return func(changed key.Set) []*task.Task {
		if !changed.Intersects(watch) {
			return nil
		}
		tasks := make([]*task.Task, 0, len(ob.Emit))
		for i := range ob.Emit {
			tasks = append(tasks, buildTask(&ob.Emit[i]))
		}
		return tasks
	}
}

func (r *Runner) indexTemplates() {
	for i := range r.scenario.Steps {
		if tt := r.scenario.Steps[i].Schedule; tt != nil {
			r.templates[tt.Label] = tt
		}
	}
	for i := range r.scenario.Observers {
		for j := range r.scenario.Observers[i].Emit {
			tt := &r.scenario.Observers[i].Emit[j]
			r.templates[tt.Label] = tt
		}
	}
}

// buildTask turns a validated template into a schedulable task.
func buildTask(tt *TaskTemplate) *task.Task {
	reads := make([]key.Key, 0, len(tt.Reads))
	for _, r := range tt.Reads {
		reads = append(reads, key.Key(r))
	}
	writes := make([]key.Key, 0, len(tt.Writes))
	for _, w := range tt.Writes {
		writes = append(writes, key.Key(w))
	}
	prio, _ := tt.priority()

	eff := tt.Effect
	return task.New(effectFunc(&eff),
		task.WithLabel(tt.Label),
		task.Reads(reads...),
		task.Writes(writes...),
		task.WithPriority(prio),
	)
}

// effectFunc compiles the declarative operations into one effect. The
// operations apply in their fixed order; fail fires last so partial
// writes stay visible to merge semantics.
func effectFunc(e *EffectSpec) task.Effect {
	return func(v store.View) error {
		for _, k := range sortedKeys(e.Set) {
			pv, err := payload.FromAny(e.Set[k])
			if err != nil {
				return fmt.Errorf("set %q: %w", k, err)
			}
			if err := v.Set(key.Key(k), pv); err != nil {
				return err
			}
		}
		if c := e.Copy; c != nil {
			raw, ok := v.Get(key.Key(c.From))
			if !ok {
				return fmt.Errorf("copy source %q is absent", c.From)
			}
			if err := v.Set(key.Key(c.To), raw); err != nil {
				return err
			}
		}
		if m := e.Merge; m != nil {
			if err := applyMerge(v, m); err != nil {
				return err
			}
		}
		if inc := e.Increment; inc != nil {
			if err := applyIncrement(v, inc); err != nil {
				return err
			}
		}
		if e.Fail != nil {
			return fmt.Errorf("%s", e.Fail.Message)
		}
		return nil
	}
}

func applyMerge(v store.View, m *MergeSpec) error {
	base := payload.Map{}
	if raw, ok := v.Get(key.Key(m.Into)); ok {
		cur, isMap := raw.(payload.Map)
		if !isMap {
			return fmt.Errorf("merge target %q is not a map", m.Into)
		}
		base = make(payload.Map, len(cur)+len(m.Fields))
		for k, pv := range cur {
			base[k] = pv
		}
	}
	for _, f := range sortedKeys(m.Fields) {
		pv, err := payload.FromAny(m.Fields[f])
		if err != nil {
			return fmt.Errorf("merge field %q: %w", f, err)
		}
		base[f] = pv
	}
	return v.Set(key.Key(m.Into), base)
}

func applyIncrement(v store.View, inc *IncrementSpec) error {
	var cur int64
	if raw, ok := v.Get(key.Key(inc.Key)); ok {
		n, isInt := raw.(payload.Int)
		if !isInt {
			return fmt.Errorf("increment target %q is not an integer", inc.Key)
		}
		cur = int64(n)
	}
	return v.Set(key.Key(inc.Key), payload.Int(cur+inc.Delta))
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
