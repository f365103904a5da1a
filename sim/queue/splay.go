package queue

type splayNode struct {
	ev          Event
	key         key
	left, right *splayNode
}

// SplayQueue is the splay-tree backend. Every insert splays the new node to
// the root and every PeekMin/PopDue splays the minimum to the root, so
// inserts near recently accessed times stay shallow.
type SplayQueue struct {
	root *splayNode
	size int
	seq  uint64
}

// NewSplayQueue creates an empty splay backend.
func NewSplayQueue() *SplayQueue {
	return &SplayQueue{}
}

func (q *SplayQueue) Insert(t float64, dest int) {
	q.seq++
	n := &splayNode{ev: Event{Dest: dest, Time: t}, key: key{t: t, seq: q.seq}}
	q.size++
	if q.root == nil {
		q.root = n
		return
	}
	root := splay(q.root, towards(n.key))
	// keys are unique (seq), so root.key != n.key
	if n.key.less(root.key) {
		n.left = root.left
		n.right = root
		root.left = nil
	} else {
		n.right = root.right
		n.left = root
		root.right = nil
	}
	q.root = n
}

func (q *SplayQueue) PeekMin() (Event, bool) {
	if q.root == nil {
		return Event{}, false
	}
	q.root = splay(q.root, leftmost)
	return q.root.ev, true
}

func (q *SplayQueue) PopDue(threshold float64) (Event, bool) {
	if q.root == nil {
		return Event{}, false
	}
	q.root = splay(q.root, leftmost)
	if q.root.ev.Time > threshold {
		return Event{}, false
	}
	ev := q.root.ev
	// after splaying the minimum, root.left is nil
	q.root = q.root.right
	q.size--
	return ev, true
}

func (q *SplayQueue) Len() int    { return q.size }
func (q *SplayQueue) Empty() bool { return q.size == 0 }

// towards steers a splay toward k.
func towards(k key) func(*splayNode) int {
	return func(n *splayNode) int {
		switch {
		case k.less(n.key):
			return -1
		case n.key.less(k):
			return 1
		default:
			return 0
		}
	}
}

func leftmost(*splayNode) int { return -1 }

// splay is a top-down splay. dir returns <0 to descend left, >0 to descend
// right, 0 to stop. The last node reached becomes the root.
func splay(t *splayNode, dir func(*splayNode) int) *splayNode {
	if t == nil {
		return nil
	}
	var hdr splayNode
	l, r := &hdr, &hdr
	for {
		d := dir(t)
		if d < 0 {
			if t.left == nil {
				break
			}
			if dir(t.left) < 0 {
				// rotate right
				y := t.left
				t.left = y.right
				y.right = t
				t = y
				if t.left == nil {
					break
				}
			}
			// link right
			r.left = t
			r = t
			t = t.left
		} else if d > 0 {
			if t.right == nil {
				break
			}
			if dir(t.right) > 0 {
				// rotate left
				y := t.right
				t.right = y.left
				y.left = t
				t = y
				if t.right == nil {
					break
				}
			}
			// link left
			l.right = t
			l = t
			t = t.right
		} else {
			break
		}
	}
	l.right = t.left
	r.left = t.right
	t.left = hdr.right
	t.right = hdr.left
	return t
}
