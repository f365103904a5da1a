package queue

import (
	"container/heap"
	"fmt"
	"math"
)

// maxQuantum bounds the quanta the ring indexes. Times beyond it (and the
// infinities) are held in the overflow heap.
const maxQuantum = 1 << 62

type binNode struct {
	ev   Event
	key  key
	next *binNode
}

// BinQueue is the time-bucketed backend.
//
// Time is quantized by a fixed width; quantum a lives in bucket a mod N. The
// ring only holds quanta in the window [cursor, cursor+N), so a bucket never
// mixes quanta and each chain is sorted by (Time, seq). Everything else (far
// future, behind the cursor, or not representable as a quantum) waits in an
// overflow heap and migrates into the ring as the window reaches it. The ring
// is only resized by an explicit Grow.
//
// Finding the minimum scans forward from the cursor to the next non-empty
// bucket and compares it with the overflow top, so pop cost is the distance to
// the next occupied quantum rather than O(log n). This is cheap when event
// times cluster near "now".
type BinQueue struct {
	width  float64
	bins   []*binNode
	cursor int64 // every ring event has a quantum in [cursor, cursor+len(bins))
	ring   int   // events in the ring
	far    eventHeap
	size   int
	seq    uint64
}

// NewBinQueue creates a bin queue with the given quantum width and ring size.
// Panics if width or nbins is not positive.
func NewBinQueue(width float64, nbins int) *BinQueue {
	if !(width > 0) || math.IsInf(width, 0) {
		panic(fmt.Sprintf("NewBinQueue: width must be positive and finite, got %v", width))
	}
	if nbins <= 0 {
		panic(fmt.Sprintf("NewBinQueue: nbins must be positive, got %d", nbins))
	}
	return &BinQueue{width: width, bins: make([]*binNode, nbins)}
}

// NumBins returns the current ring size.
func (q *BinQueue) NumBins() int { return len(q.bins) }

// quantum returns t's quantum, or false if it is out of the indexable range.
func (q *BinQueue) quantum(t float64) (int64, bool) {
	f := math.Floor(t / q.width)
	if !(f > -maxQuantum && f < maxQuantum) {
		return 0, false
	}
	return int64(f), true
}

func (q *BinQueue) inWindow(a int64) bool {
	return a >= q.cursor && a-q.cursor < int64(len(q.bins))
}

func (q *BinQueue) index(a int64) int {
	n := int64(len(q.bins))
	i := a % n
	if i < 0 {
		i += n
	}
	return int(i)
}

// Insert adds an event. Panics on a NaN time, which has no place in the order.
func (q *BinQueue) Insert(t float64, dest int) {
	if math.IsNaN(t) {
		panic(fmt.Sprintf("BinQueue.Insert: NaN time for dest %d", dest))
	}
	q.seq++
	ev := Event{Dest: dest, Time: t}
	k := key{t: t, seq: q.seq}
	q.size++

	a, ok := q.quantum(t)
	if ok && q.ring == 0 {
		q.cursor = a
	}
	if ok && q.inWindow(a) {
		q.link(&binNode{ev: ev, key: k}, a)
		return
	}
	heap.Push(&q.far, heapItem{ev: ev, key: k})
}

// link puts n into its bucket's sorted chain. a must be inside the window.
func (q *BinQueue) link(n *binNode, a int64) {
	i := q.index(a)
	head := q.bins[i]
	if head == nil || n.key.less(head.key) {
		n.next = head
		q.bins[i] = n
	} else {
		p := head
		for p.next != nil && p.next.key.less(n.key) {
			p = p.next
		}
		n.next = p.next
		p.next = n
	}
	q.ring++
}

// refill moves overflow events that have come inside the window into the ring.
func (q *BinQueue) refill() {
	for len(q.far) > 0 {
		top := q.far[0]
		a, ok := q.quantum(top.ev.Time)
		if !ok || !q.inWindow(a) {
			return
		}
		heap.Pop(&q.far)
		q.link(&binNode{ev: top.ev, key: top.key}, a)
	}
}

// Grow reallocates the ring to at least n buckets (doubling) and rebuckets
// every chain. Chains move whole since each holds a single quantum.
func (q *BinQueue) Grow(n int) {
	if n <= len(q.bins) {
		return
	}
	size := len(q.bins)
	for size < n {
		size *= 2
	}
	old := q.bins
	q.bins = make([]*binNode, size)
	for _, head := range old {
		if head != nil {
			a, _ := q.quantum(head.ev.Time)
			q.bins[q.index(a)] = head
		}
	}
	q.refill()
}

// front locates the earliest event. bucket is -1 when it is the overflow top.
func (q *BinQueue) front() (ev Event, bucket int, ok bool) {
	if q.size == 0 {
		return Event{}, -1, false
	}
	if q.ring == 0 {
		if a, fits := q.quantum(q.far[0].ev.Time); fits {
			q.cursor = a
		}
	}
	q.refill()
	if q.ring == 0 {
		return q.far[0].ev, -1, true
	}
	for q.bins[q.index(q.cursor)] == nil {
		q.cursor++
		q.refill()
	}
	i := q.index(q.cursor)
	head := q.bins[i]
	if len(q.far) > 0 && q.far[0].key.less(head.key) {
		return q.far[0].ev, -1, true
	}
	return head.ev, i, true
}

func (q *BinQueue) PeekMin() (Event, bool) {
	ev, _, ok := q.front()
	return ev, ok
}

func (q *BinQueue) PopDue(threshold float64) (Event, bool) {
	ev, i, ok := q.front()
	if !ok || ev.Time > threshold {
		return Event{}, false
	}
	if i < 0 {
		heap.Pop(&q.far)
	} else {
		q.bins[i] = q.bins[i].next
		q.ring--
	}
	q.size--
	return ev, true
}

func (q *BinQueue) Len() int    { return q.size }
func (q *BinQueue) Empty() bool { return q.size == 0 }
