package model

import (
	"fmt"
	"log/slog"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/sched"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

// Discipline selects the execution strategy for a Model's processor.
type Discipline int

const (
	// OutOfOrder executes ready work by priority while honoring data
	// hazards. The default.
	OutOfOrder Discipline = iota

	// InOrder executes strictly in submission order, ignoring declared
	// sets. Conservative baseline for diagnosis and replay.
	InOrder
)

// String returns the discipline's scenario-file spelling.
func (d Discipline) String() string {
	switch d {
	case OutOfOrder:
		return "out-of-order"
	case InOrder:
		return "in-order"
	default:
		return fmt.Sprintf("discipline(%d)", int(d))
	}
}

// Observer reacts to component changes. After a completion whose merge
// changed at least one component, every registered observer receives the
// changed key set, in registration order, and returns follow-up tasks.
// Returned tasks are scheduled under the completing task's cascade token
// and run on later ProcessTask calls, never inside the notification.
type Observer func(changed key.Set) []*task.Task

// Result reports what one Model.ProcessTask call did.
type Result struct {
	sched.Result

	// Changed is the key set this completion drained from the change
	// buffer. Empty when nothing ran or the effect changed nothing.
	Changed key.Set

	// Spawned counts observer tasks scheduled by this completion.
	Spawned int

	// CascadeErr is a *CascadeLimitError when this completion pushed its
	// cascade past the step quota. Observers were skipped.
	CascadeErr error
}

// Model is the facade the embedding editor drives. It owns the component
// store and a processor wired with the drain-and-notify routine: every
// completion drains the change buffer, notifies observers, and schedules
// the tasks they return under the same cascade token.
//
// A Model is single-threaded cooperative, like the processor under it.
// All calls must come from one goroutine, and execution only advances
// inside ProcessTask.
type Model struct {
	store      *store.Store
	proc       sched.Processor
	log        *slog.Logger
	tokens     TokenSource
	discipline Discipline

	observers []registeredObserver
	names     map[string]struct{}

	maxCascadeSteps int
	cascades        map[string]int

	stepping bool
	last     *outcome
}

type registeredObserver struct {
	name string
	fn   Observer
}

// outcome carries what the completion hook learned back to ProcessTask.
type outcome struct {
	changed    key.Set
	spawned    int
	cascadeErr error
}

// Option configures a Model at construction.
type Option func(*config)

type config struct {
	discipline      Discipline
	logger          *slog.Logger
	tokens          TokenSource
	maxCascadeSteps int
	strictReads     bool
	seed            map[key.Key]any
	clockStart      int64
	pinClock        bool
}

// WithDiscipline selects the execution discipline. Default OutOfOrder.
func WithDiscipline(d Discipline) Option {
	return func(c *config) { c.discipline = d }
}

// WithLogger sets the logger for the model and its processor.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTokens substitutes the cascade token source. Default UUIDSource.
func WithTokens(src TokenSource) Option {
	return func(c *config) { c.tokens = src }
}

// WithMaxCascadeSteps bounds the completions one cascade may execute.
// Zero, the default, means unlimited.
func WithMaxCascadeSteps(n int) Option {
	return func(c *config) { c.maxCascadeSteps = n }
}

// WithStrictReads makes out-of-order effects fail on reads outside their
// declared read set.
func WithStrictReads() Option {
	return func(c *config) { c.strictReads = true }
}

// WithSeed populates the store before any task runs. Seeded writes do not
// appear in any completion's changed set.
func WithSeed(values map[key.Key]any) Option {
	return func(c *config) { c.seed = values }
}

// WithClockAt pins the submission clock so the first instruction gets
// seq start+1. Replays use it to reproduce recorded seq numbers.
func WithClockAt(start int64) Option {
	return func(c *config) {
		c.clockStart = start
		c.pinClock = true
	}
}

// New builds a Model around a fresh store.
func New(opts ...Option) (*Model, error) {
	cfg := config{
		discipline: OutOfOrder,
		logger:     slog.Default(),
		tokens:     UUIDSource{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := store.New()
	if cfg.seed != nil {
		st.Seed(cfg.seed)
		st.DrainChanges()
	}

	m := &Model{
		store:           st,
		log:             cfg.logger,
		tokens:          cfg.tokens,
		discipline:      cfg.discipline,
		names:           make(map[string]struct{}),
		maxCascadeSteps: cfg.maxCascadeSteps,
		cascades:        make(map[string]int),
	}

	schedOpts := []sched.Option{
		sched.WithLogger(cfg.logger),
		sched.WithCompletionHook(m.onCompletion),
	}
	if cfg.pinClock {
		schedOpts = append(schedOpts, sched.WithClock(sched.NewClockAt(cfg.clockStart)))
	}
	if cfg.strictReads {
		schedOpts = append(schedOpts, sched.WithStrictReads())
	}

	switch cfg.discipline {
	case OutOfOrder:
		m.proc = sched.NewOutOfOrder(st, schedOpts...)
	case InOrder:
		m.proc = sched.NewInOrder(st, schedOpts...)
	default:
		return nil, &sched.InvariantError{
			Code:    sched.ErrCodeUnknownDiscipline,
			Op:      "model.New",
			Message: fmt.Sprintf("discipline %d is not defined", int(cfg.discipline)),
		}
	}
	return m, nil
}

// CreateTask builds a task without scheduling it. Pure convenience over
// task.New so callers holding a Model need no second import.
func (m *Model) CreateTask(effect task.Effect, opts ...task.Option) *task.Task {
	return task.New(effect, opts...)
}

// RegisterObserver appends fn to the observer list under a unique name.
// Observers run in registration order, which never changes afterwards.
func (m *Model) RegisterObserver(name string, fn Observer) error {
	if name == "" {
		return fmt.Errorf("observer name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("observer %q has no function", name)
	}
	if _, dup := m.names[name]; dup {
		return fmt.Errorf("duplicate observer name: %s", name)
	}
	m.names[name] = struct{}{}
	m.observers = append(m.observers, registeredObserver{name: name, fn: fn})
	return nil
}

// Schedule submits an externally created task, opening a new cascade with
// a fresh correlation token. Tasks observers return do not come through
// here; the completion hook schedules those under the inherited token.
func (m *Model) Schedule(t *task.Task) error {
	token := m.tokens.Generate()
	if err := m.proc.Schedule(t, token); err != nil {
		return err
	}
	m.log.Debug("cascade opened", "cascade", token, "task", t.Label)
	return nil
}

// ProcessTask drives one scheduling step: at most one instruction
// executes, its changes drain, observers run, and their tasks join the
// backlog. Calling it from inside an effect or observer is an invariant
// violation.
func (m *Model) ProcessTask() (Result, error) {
	if m.stepping {
		return Result{}, &sched.InvariantError{
			Code:    sched.ErrCodeModelReentry,
			Op:      "model.ProcessTask",
			Message: "ProcessTask called from inside an effect or observer",
		}
	}

	m.stepping = true
	m.last = nil
	res, err := m.proc.ProcessTask()
	m.stepping = false

	if err != nil {
		return Result{}, err
	}

	out := Result{Result: res, Changed: key.NewSet()}
	if !res.Ran {
		// An empty backlog ends every cascade; forget their counters.
		if len(m.cascades) > 0 {
			m.cascades = make(map[string]int)
		}
		return out, nil
	}

	if m.last != nil {
		out.Changed = m.last.changed
		out.Spawned = m.last.spawned
		out.CascadeErr = m.last.cascadeErr
	}
	return out, nil
}

// Settle calls ProcessTask until nothing ran or limit steps executed,
// returning the number of steps taken. A zero or negative limit means no
// limit. The first invariant violation stops the loop.
func (m *Model) Settle(limit int) (int, error) {
	steps := 0
	for {
		if limit > 0 && steps >= limit {
			return steps, nil
		}
		res, err := m.ProcessTask()
		if err != nil {
			return steps, err
		}
		if !res.Ran {
			return steps, nil
		}
		steps++
	}
}

// Store returns the component store. Read it freely between steps; only
// task effects should write.
func (m *Model) Store() *store.Store { return m.store }

// Backlog returns the number of scheduled-but-unexecuted tasks.
func (m *Model) Backlog() int { return m.proc.Backlog() }

// Discipline returns the execution discipline fixed at construction.
func (m *Model) Discipline() Discipline { return m.discipline }

// onCompletion is the processor hook: runs after every completion, failed
// effects included, while the processor still holds the running flag.
func (m *Model) onCompletion(res sched.Result) {
	out := &outcome{changed: m.store.DrainChanges()}
	m.last = out

	if lim := m.chargeStep(res.Token); lim != nil {
		out.cascadeErr = lim
		m.log.Error("cascade step quota exceeded",
			"cascade", res.Token,
			"task", res.Label,
			"steps", lim.Steps,
			"limit", lim.Limit,
		)
		return
	}

	if out.changed.Len() == 0 {
		return
	}

	m.log.Debug("notifying observers",
		"cascade", res.Token,
		"task", res.Label,
		"changed", out.changed.String(),
		"observers", len(m.observers),
	)

	for _, ob := range m.observers {
		for _, t := range ob.fn(out.changed.Clone()) {
			if err := m.proc.Schedule(t, res.Token); err != nil {
				m.log.Warn("observer task rejected",
					"observer", ob.name,
					"cascade", res.Token,
					"error", err,
				)
				continue
			}
			out.spawned++
		}
	}

	if out.spawned > 0 {
		m.log.Debug("cascade grew",
			"cascade", res.Token, "spawned", out.spawned)
	}
}
