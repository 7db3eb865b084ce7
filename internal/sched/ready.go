package sched

// readyPool is the out-of-order discipline's eligible-instruction heap:
// higher priority first, submission order among equals. The (priority,
// seq) pair totally orders instructions, so pop order is deterministic
// even though container/heap itself is not stable.
type readyPool []*instruction

func (q readyPool) Len() int { return len(q) }

func (q readyPool) Less(i, j int) bool {
	if q[i].task.Priority != q[j].task.Priority {
		return q[i].task.Priority > q[j].task.Priority
	}
	return q[i].seq < q[j].seq
}

func (q readyPool) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyPool) Push(x any) {
	*q = append(*q, x.(*instruction))
}

func (q *readyPool) Pop() any {
	old := *q
	n := len(old)
	in := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return in
}
