package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/model"
	"github.com/probst/tangle/internal/payload"
	"github.com/probst/tangle/internal/task"
)

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates scenario YAML. Unknown fields are errors.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty scenario document")
		}
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks structural and contract consistency before any step
// runs, so a malformed scenario fails at load time rather than mid-run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if _, err := s.discipline(); err != nil {
		return err
	}
	for k, v := range s.Seed {
		if err := key.Key(k).Validate(); err != nil {
			return fmt.Errorf("seed key %q: %w", k, err)
		}
		if _, err := payload.FromAny(v); err != nil {
			return fmt.Errorf("seed %q: %w", k, err)
		}
	}
	names := make(map[string]struct{}, len(s.Observers))
	for i := range s.Observers {
		if err := s.Observers[i].validate(); err != nil {
			return fmt.Errorf("observer %d: %w", i, err)
		}
		if _, dup := names[s.Observers[i].Name]; dup {
			return fmt.Errorf("duplicate observer name: %s", s.Observers[i].Name)
		}
		names[s.Observers[i].Name] = struct{}{}
	}
	for i := range s.Steps {
		if err := s.Steps[i].validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	for i := range s.Assertions {
		if err := s.Assertions[i].validate(); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func (s *Scenario) discipline() (model.Discipline, error) {
	switch s.Discipline {
	case "", "out-of-order":
		return model.OutOfOrder, nil
	case "in-order":
		return model.InOrder, nil
	default:
		return 0, fmt.Errorf("unknown discipline %q", s.Discipline)
	}
}

func (o *ObserverSpec) validate() error {
	if o.Name == "" {
		return fmt.Errorf("observer has no name")
	}
	if len(o.Watch) == 0 {
		return fmt.Errorf("observer %q watches nothing", o.Name)
	}
	for _, w := range o.Watch {
		if err := key.Key(w).Validate(); err != nil {
			return fmt.Errorf("observer %q watch key: %w", o.Name, err)
		}
	}
	if len(o.Emit) == 0 {
		return fmt.Errorf("observer %q emits nothing", o.Name)
	}
	for i := range o.Emit {
		if err := o.Emit[i].validate(); err != nil {
			return fmt.Errorf("observer %q emit %d: %w", o.Name, i, err)
		}
	}
	return nil
}

func (st *Step) validate() error {
	n := 0
	if st.Schedule != nil {
		n++
		if err := st.Schedule.validate(); err != nil {
			return err
		}
	}
	if st.Process != 0 {
		n++
		if st.Process < 0 {
			return fmt.Errorf("process count %d is negative", st.Process)
		}
	}
	if st.Settle {
		n++
	}
	if n != 1 {
		return fmt.Errorf("step must set exactly one of schedule, process, settle")
	}
	return nil
}

func (tt *TaskTemplate) validate() error {
	if tt.Label == "" {
		return fmt.Errorf("task template has no label")
	}
	reads := key.NewSet()
	for _, r := range tt.Reads {
		if err := key.Key(r).Validate(); err != nil {
			return fmt.Errorf("task %q read key: %w", tt.Label, err)
		}
		reads.Add(key.Key(r))
	}
	writes := key.NewSet()
	for _, w := range tt.Writes {
		if err := key.Key(w).Validate(); err != nil {
			return fmt.Errorf("task %q write key: %w", tt.Label, err)
		}
		writes.Add(key.Key(w))
	}
	if _, err := tt.priority(); err != nil {
		return fmt.Errorf("task %q: %w", tt.Label, err)
	}
	if err := tt.Effect.validate(tt.Label, reads, writes); err != nil {
		return err
	}
	return nil
}

func (tt *TaskTemplate) priority() (task.Priority, error) {
	switch tt.Priority {
	case "", "normal":
		return task.Normal, nil
	case "low":
		return task.Low, nil
	case "high":
		return task.High, nil
	}
	n, err := strconv.Atoi(tt.Priority)
	if err != nil {
		return 0, fmt.Errorf("priority %q is neither a level nor an integer", tt.Priority)
	}
	return task.Priority(n), nil
}

// validate cross-checks each operation against the declared sets: set
// targets must be writable, copy sources readable, and read-modify-write
// targets both.
func (e *EffectSpec) validate(label string, reads, writes key.Set) error {
	empty := true

	for k, v := range e.Set {
		empty = false
		if !writes.Has(key.Key(k)) {
			return fmt.Errorf("task %q sets %q outside its write set", label, k)
		}
		if _, err := payload.FromAny(v); err != nil {
			return fmt.Errorf("task %q set %q: %w", label, k, err)
		}
	}
	if c := e.Copy; c != nil {
		empty = false
		if !reads.Has(key.Key(c.From)) {
			return fmt.Errorf("task %q copies from %q outside its read set", label, c.From)
		}
		if !writes.Has(key.Key(c.To)) {
			return fmt.Errorf("task %q copies to %q outside its write set", label, c.To)
		}
	}
	if m := e.Merge; m != nil {
		empty = false
		if !reads.Has(key.Key(m.Into)) || !writes.Has(key.Key(m.Into)) {
			return fmt.Errorf("task %q merges into %q without read and write membership", label, m.Into)
		}
		if len(m.Fields) == 0 {
			return fmt.Errorf("task %q merge has no fields", label)
		}
		for f, v := range m.Fields {
			if _, err := payload.FromAny(v); err != nil {
				return fmt.Errorf("task %q merge field %q: %w", label, f, err)
			}
		}
	}
	if inc := e.Increment; inc != nil {
		empty = false
		if !reads.Has(key.Key(inc.Key)) || !writes.Has(key.Key(inc.Key)) {
			return fmt.Errorf("task %q increments %q without read and write membership", label, inc.Key)
		}
	}
	if e.Fail != nil {
		empty = false
	}

	if empty {
		return fmt.Errorf("task %q has an empty effect", label)
	}
	return nil
}

func (a *Assertion) validate() error {
	switch a.Type {
	case AssertFinalState:
		if a.Key == "" {
			return fmt.Errorf("final_state needs a key")
		}
		if _, err := payload.FromAny(a.Value); err != nil {
			return fmt.Errorf("final_state %q value: %w", a.Key, err)
		}
	case AssertExecOrder:
		if len(a.Labels) < 2 {
			return fmt.Errorf("exec_order needs at least two labels")
		}
	case AssertExecContains, AssertTaskFailed:
		if a.Label == "" {
			return fmt.Errorf("%s needs a label", a.Type)
		}
	case AssertExecCount:
		if a.Label == "" {
			return fmt.Errorf("exec_count needs a label")
		}
		if a.Count < 0 {
			return fmt.Errorf("exec_count count %d is negative", a.Count)
		}
	case AssertBacklogEmpty:
		// no parameters
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
