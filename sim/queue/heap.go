package queue

import "container/heap"

type heapItem struct {
	ev  Event
	key key
}

// eventHeap implements heap.Interface ordered by (Time, seq).
type eventHeap []heapItem

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].key.less(h[j].key) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(heapItem))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// HeapQueue is the binary-heap backend.
type HeapQueue struct {
	items eventHeap
	seq   uint64
}

// NewHeapQueue creates an empty heap backend.
func NewHeapQueue() *HeapQueue {
	q := &HeapQueue{items: make(eventHeap, 0)}
	heap.Init(&q.items)
	return q
}

func (q *HeapQueue) Insert(t float64, dest int) {
	q.seq++
	heap.Push(&q.items, heapItem{ev: Event{Dest: dest, Time: t}, key: key{t: t, seq: q.seq}})
}

func (q *HeapQueue) PeekMin() (Event, bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	return q.items[0].ev, true
}

func (q *HeapQueue) PopDue(threshold float64) (Event, bool) {
	if len(q.items) == 0 || q.items[0].ev.Time > threshold {
		return Event{}, false
	}
	return heap.Pop(&q.items).(heapItem).ev, true
}

func (q *HeapQueue) Len() int    { return len(q.items) }
func (q *HeapQueue) Empty() bool { return len(q.items) == 0 }
