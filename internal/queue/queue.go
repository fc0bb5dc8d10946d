// Package queue provides the priority queue that drives best-first tree
// traversal.
package queue

// Item is a tree node waiting to be expanded.
type Item struct {
	Node     uint32
	Priority float32
	seq      uint64
}

// Max is a max-heap on Priority. Items with equal priority pop in push
// order, which keeps traversal deterministic.
type Max struct {
	items []Item
	seq   uint64
}

// NewMax returns an empty queue with room for capacity items.
func NewMax(capacity int) *Max {
	return &Max{items: make([]Item, 0, capacity)}
}

// Len returns the number of queued items.
func (q *Max) Len() int { return len(q.items) }

// Push queues node with priority.
func (q *Max) Push(node uint32, priority float32) {
	q.items = append(q.items, Item{Node: node, Priority: priority, seq: q.seq})
	q.seq++
	q.siftUp(len(q.items) - 1)
}

// Top returns the highest-priority item without removing it.
func (q *Max) Top() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Pop removes and returns the highest-priority item.
func (q *Max) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	root := q.items[0]
	last := q.items[n-1]
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root, true
}

// Reset empties the queue for reuse.
func (q *Max) Reset() {
	q.items = q.items[:0]
	q.seq = 0
}

func (q *Max) less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

func (q *Max) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Max) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
