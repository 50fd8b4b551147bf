package launch

import (
	"container/heap"
	"sync"
)

// queueItem pairs a process with the sequence number assigned at
// enqueue time. The sequence number is the explicit tie-breaker for
// equal priorities; heap ordering alone is not stable.
type queueItem struct {
	proc Process
	seq  uint64
}

type itemHeap []queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	pi, pj := h[i].proc.Spec().StartPriority, h[j].proc.Spec().StartPriority
	if pi != pj {
		return pi > pj
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(queueItem)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// pendingQueue is the priority-ordered multiset of launches waiting for
// an admission slot. Higher start priority is served first; ties go to
// the earlier enqueue. All methods are safe for concurrent use.
type pendingQueue struct {
	mu      sync.Mutex
	items   itemHeap
	nextSeq uint64
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

func (q *pendingQueue) push(p Process) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, queueItem{proc: p, seq: q.nextSeq})
	q.nextSeq++
}

// pop removes and returns the highest-priority launch, or false if the
// queue is empty.
func (q *pendingQueue) pop() (Process, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := heap.Pop(&q.items).(queueItem)
	return item.proc, true
}

// remove deletes exactly the given launch if it is still pending.
// Matching is by request identity, not service identity: a service may
// have several distinct requests queued. Returns whether anything was
// removed.
func (q *pendingQueue) remove(p Process) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].proc == p {
			heap.Remove(&q.items, i)
			return true
		}
	}
	return false
}

// drain empties the queue and returns everything that was pending.
func (q *pendingQueue) drain() []Process {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Process, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, item.proc)
	}
	q.items = q.items[:0]
	return out
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
