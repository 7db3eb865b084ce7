package scenario

// Scenario is one declarative scheduler exercise.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files use it.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Discipline selects the processor: "out-of-order" (default when
	// empty) or "in-order".
	Discipline string `yaml:"discipline,omitempty"`

	// StrictReads makes undeclared reads fail the effect.
	StrictReads bool `yaml:"strict_reads,omitempty"`

	// MaxCascadeSteps bounds each cascade; zero means unlimited.
	MaxCascadeSteps int `yaml:"max_cascade_steps,omitempty"`

	// Seed populates components before any step runs. Values are payload
	// trees; floats are rejected.
	Seed map[string]any `yaml:"seed,omitempty"`

	// Observers are registered before the steps execute, in list order.
	Observers []ObserverSpec `yaml:"observers,omitempty"`

	// Steps is the execution script.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// ObserverSpec declares an observer that reacts to watched keys by
// emitting task templates.
type ObserverSpec struct {
	Name string `yaml:"name"`

	// Watch lists component keys; the observer emits only when a
	// completion changed at least one of them.
	Watch []string `yaml:"watch"`

	// Emit lists the task templates scheduled on a watched change.
	Emit []TaskTemplate `yaml:"emit"`
}

// TaskTemplate describes a schedulable task declaratively.
type TaskTemplate struct {
	Label  string   `yaml:"label"`
	Reads  []string `yaml:"reads,omitempty"`
	Writes []string `yaml:"writes,omitempty"`

	// Priority is "low", "normal" (default), "high", or an integer
	// spelled as a scalar.
	Priority string `yaml:"priority,omitempty"`

	Effect EffectSpec `yaml:"effect"`
}

// EffectSpec is the declarative effect body. Operations apply in a fixed
// order: set, copy, merge, increment, then fail. Validation cross-checks
// every touched key against the template's declared sets.
type EffectSpec struct {
	// Set writes a literal payload per key.
	Set map[string]any `yaml:"set,omitempty"`

	// Copy reads one component and writes it to another.
	Copy *CopySpec `yaml:"copy,omitempty"`

	// Merge folds fields into a map component (read-modify-write).
	Merge *MergeSpec `yaml:"merge,omitempty"`

	// Increment adds a delta to an integer component (read-modify-write;
	// an absent component counts as zero).
	Increment *IncrementSpec `yaml:"increment,omitempty"`

	// Fail makes the effect return an error after the other operations
	// applied, exercising partial-write semantics.
	Fail *FailSpec `yaml:"fail,omitempty"`
}

// CopySpec names the source and destination components of a copy.
type CopySpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// MergeSpec folds literal fields into a map component.
type MergeSpec struct {
	Into   string         `yaml:"into"`
	Fields map[string]any `yaml:"fields"`
}

// IncrementSpec adds Delta to an integer component.
type IncrementSpec struct {
	Key   string `yaml:"key"`
	Delta int64  `yaml:"delta"`
}

// FailSpec makes the effect fail with the given message.
type FailSpec struct {
	Message string `yaml:"message"`
}

// Step is one script entry; exactly one field may be set.
type Step struct {
	// Schedule submits a task, opening a new cascade.
	Schedule *TaskTemplate `yaml:"schedule,omitempty"`

	// Process calls ProcessTask the given number of times.
	Process int `yaml:"process,omitempty"`

	// Settle processes until the backlog drains.
	Settle bool `yaml:"settle,omitempty"`
}

// Assertion validates the trace or the final store state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key and Value serve final_state.
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Labels serves exec_order.
	Labels []string `yaml:"labels,omitempty"`

	// Label serves exec_contains, exec_count, and task_failed.
	Label string `yaml:"label,omitempty"`

	// Count serves exec_count.
	Count int `yaml:"count,omitempty"`

	// Message serves task_failed (substring match; empty matches any
	// failure).
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState   = "final_state"
	AssertExecOrder    = "exec_order"
	AssertExecContains = "exec_contains"
	AssertExecCount    = "exec_count"
	AssertTaskFailed   = "task_failed"
	AssertBacklogEmpty = "backlog_empty"
)

// TraceEvent records one executed instruction.
type TraceEvent struct {
	Seq      int64    `json:"seq"`
	Label    string   `json:"label"`
	Token    string   `json:"token"`
	Priority int      `json:"priority"`
	Reads    []string `json:"reads,omitempty"`
	Writes   []string `json:"writes,omitempty"`
	Changed  []string `json:"changed,omitempty"`
	Spawned  int      `json:"spawned,omitempty"`
	Error    string   `json:"error,omitempty"`
	Cascade  string   `json:"cascade_error,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists executed instructions in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists assertion failures; empty when Pass.
	Errors []string `json:"errors,omitempty"`

	// FinalState maps each set component to its final payload value.
	// Components holding non-payload values are skipped.
	FinalState map[string]any `json:"final_state,omitempty"`

	// Backlog is the scheduled-but-unexecuted count after the last step.
	Backlog int `json:"backlog"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		FinalState: make(map[string]any),
	}
}

// AddError records an assertion failure and fails the result.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
