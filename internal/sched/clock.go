package sched

import "sync/atomic"

// Clock is the monotonic logical clock that stamps instruction submission
// order.
//
// Every scheduled task receives a strictly increasing seq number. Seq
// numbers carry the FIFO tie-break inside the ready pool, the relative
// order of trace events, and the earlier/later relation the snapshot
// freeze step depends on. No wall clocks anywhere: identical schedules
// replay with identical seqs.
//
// Clock is safe for concurrent use, though the processors' single-writer
// design means one goroutine typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next tick is start+1. Scenario replays
// use it to pin traces to known seq numbers.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
