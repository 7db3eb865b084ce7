package archive

import (
	"context"
	"fmt"

	"github.com/probst/tangle/internal/codec"
	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/payload"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

// SaveTask builds a task that persists component k through c. The task
// declares k in its read set and nothing in its write set, so the
// scheduler orders the save after any pending writer of k and the effect
// observes the settled value.
//
// The effect fails if k is absent or holds a non-payload value. The
// codec runs only inside the effect, as does all archive I/O.
func SaveTask(a *Archive, k key.Key, c codec.Codec) *task.Task {
	return task.New(func(v store.View) error {
		raw, ok := v.Get(k)
		if !ok {
			return fmt.Errorf("save %q: component is absent", k)
		}
		pv, ok := raw.(payload.Value)
		if !ok {
			return fmt.Errorf("save %q: value of type %T is not a payload", k, raw)
		}
		if _, _, err := a.SaveComponent(context.Background(), k, pv, c, 0); err != nil {
			return err
		}
		return nil
	},
		task.WithLabel(fmt.Sprintf("archive.save(%s)", k)),
		task.Reads(k),
	)
}

// LoadTask builds a task that loads the latest archived revision of k
// into the store. The task declares k in its write set only; loading
// replaces whatever the component held, and any previously scheduled
// writer of k is ordered ahead of the load by the usual write chain.
func LoadTask(a *Archive, k key.Key) *task.Task {
	return task.New(func(v store.View) error {
		pv, _, err := a.LoadComponent(context.Background(), k)
		if err != nil {
			return err
		}
		return v.Set(k, pv)
	},
		task.WithLabel(fmt.Sprintf("archive.load(%s)", k)),
		task.Writes(k),
	)
}
