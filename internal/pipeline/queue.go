package pipeline

import "container/heap"

// resultHeap orders pending results by window index.
type resultHeap []Result

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Window.Index < h[j].Window.Index }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) { *h = append(*h, x.(Result)) }

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// reorder releases results in index order starting at 0, holding back
// any that complete early.
type reorder struct {
	next    int
	pending resultHeap
}

// add queues r and returns every result that is now in sequence.
func (q *reorder) add(r Result) []Result {
	heap.Push(&q.pending, r)
	var ready []Result
	for q.pending.Len() > 0 && q.pending[0].Window.Index == q.next {
		ready = append(ready, heap.Pop(&q.pending).(Result))
		q.next++
	}
	return ready
}
