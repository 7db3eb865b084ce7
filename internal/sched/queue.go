package sched

// fifo is the in-order discipline's submission queue.
//
// Popped slots are nilled so retired instructions are released to the GC,
// and the backing array is dropped once the queue empties so a drained
// queue does not pin memory from a past burst.
type fifo struct {
	items []*instruction
}

func (q *fifo) push(in *instruction) {
	q.items = append(q.items, in)
}

func (q *fifo) pop() (*instruction, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	in := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return in, true
}

func (q *fifo) len() int {
	return len(q.items)
}
