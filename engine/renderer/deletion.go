package renderer

// DeletionQueue defers resource destruction until the GPU is known to be
// done with the resources. Actions run in reverse push order.
type DeletionQueue struct {
	deletors []func()
}

func (q *DeletionQueue) Push(fn func()) {
	q.deletors = append(q.deletors, fn)
}

// Flush runs every pending action, newest first, and empties the queue.
// Actions pushed while flushing run in the same call, after the batch that
// was pending when they were pushed. Callers must have waited for the work
// that used the resources.
func (q *DeletionQueue) Flush() {
	for len(q.deletors) > 0 {
		batch := q.deletors
		q.deletors = nil
		for i := len(batch) - 1; i >= 0; i-- {
			batch[i]()
			batch[i] = nil
		}
	}
}

func (q *DeletionQueue) Len() int {
	return len(q.deletors)
}
