package store

import (
	"errors"
	"fmt"

	"github.com/probst/tangle/internal/key"
)

// ContractError reports a component access outside a task's declared
// read/write sets.
type ContractError struct {
	Key key.Key
	Op  string // "read" or "write"
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("undeclared %s of component %q", e.Op, e.Key)
}

// IsContractError reports whether err is a declared-set contract breach.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// Overlay is an instruction's private snapshot over the shared arena.
//
// Reads consult the overlay's local values first (transferred producer
// output, frozen base values, the instruction's own writes) and fall
// through to the base store otherwise. Writes stay local until Merge. The
// scheduler freezes base values into earlier overlays before a later
// writer merges, so a lazily-reading instruction always observes the
// store as of its own schedule point.
//
// Set outside the declared write set is refused and recorded. Get outside
// the declared read set is recorded only under strict reads; an
// instruction may always read a key it has already written. The first
// recorded breach is surfaced through Violation.
type Overlay struct {
	base        *Store
	local       map[key.Key]localValue
	refs        map[key.Key]int
	written     key.Set
	readable    key.Set
	writable    key.Set
	strictReads bool
	violation   *ContractError
}

// localValue distinguishes "locally known absent" from "not captured":
// a transferred or frozen absence must shadow later base writes.
type localValue struct {
	value   any
	present bool
}

// NewOverlay builds an overlay over base. The key sets are owned by the
// caller and must not change for the overlay's lifetime.
func NewOverlay(base *Store, readable, writable key.Set, strictReads bool) *Overlay {
	return &Overlay{
		base:        base,
		local:       make(map[key.Key]localValue),
		refs:        make(map[key.Key]int),
		written:     key.NewSet(),
		readable:    readable,
		writable:    writable,
		strictReads: strictReads,
	}
}

// Get implements View. Under strict reads, a key outside the read set that
// the instruction has not written reads as absent and records a breach.
func (o *Overlay) Get(k key.Key) (any, bool) {
	if o.strictReads && !o.readable.Has(k) && !o.written.Has(k) {
		o.record(&ContractError{Key: k, Op: "read"})
		return nil, false
	}
	return o.lookup(k)
}

// Set implements View. Writes outside the declared write set are refused
// and recorded; the local snapshot is left untouched.
func (o *Overlay) Set(k key.Key, v any) error {
	if !o.writable.Has(k) {
		ce := &ContractError{Key: k, Op: "write"}
		o.record(ce)
		return ce
	}
	o.local[k] = localValue{value: v, present: true}
	o.written.Add(k)
	return nil
}

// Peek returns the overlay's effective value for k with no contract
// checks. The scheduler uses it to compute transferred output.
func (o *Overlay) Peek(k key.Key) (any, bool) {
	return o.lookup(k)
}

func (o *Overlay) lookup(k key.Key) (any, bool) {
	if lv, ok := o.local[k]; ok {
		return lv.value, lv.present
	}
	if i, ok := o.ref(k); ok {
		sl := o.base.slots[i]
		if !sl.set {
			return nil, false
		}
		return sl.value, true
	}
	return nil, false
}

// ref resolves and caches the base arena index for k.
func (o *Overlay) ref(k key.Key) (int, bool) {
	if i, ok := o.refs[k]; ok {
		return i, true
	}
	i, ok := o.base.index[k]
	if !ok {
		return 0, false
	}
	o.refs[k] = i
	return i, true
}

// Receive installs a value transferred from a completed producer. An
// absent producer value is installed as explicit absence so later base
// writes cannot leak in.
func (o *Overlay) Receive(k key.Key, v any, present bool) {
	o.local[k] = localValue{value: v, present: present}
}

// Freeze pins the current base value of k into the overlay. The scheduler
// calls it before a later-scheduled writer merges over a key this
// instruction reads lazily. Already-captured keys are left alone.
func (o *Overlay) Freeze(k key.Key) {
	if _, ok := o.local[k]; ok {
		return
	}
	v, present := o.base.Get(k)
	o.local[k] = localValue{value: v, present: present}
}

// Merge applies the overlay's performed writes to the base store in
// sorted order, recording each in the change buffer, and returns the set
// merged. Declared keys the effect never wrote are not touched.
func (o *Overlay) Merge() key.Set {
	for _, k := range o.written.Sorted() {
		o.base.Set(k, o.local[k].value)
	}
	return o.written.Clone()
}

// Written returns the keys the effect actually wrote so far.
func (o *Overlay) Written() key.Set { return o.written }

// Violation returns the first recorded contract breach, if any.
func (o *Overlay) Violation() *ContractError { return o.violation }

func (o *Overlay) record(ce *ContractError) {
	if o.violation == nil {
		o.violation = ce
	}
}
