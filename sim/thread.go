package sim

import (
	"fmt"
	"sync"

	"github.com/neuromapp/eventpassing/sim/queue"
)

// ThreadCounters are the exact per-group event counts.
//
// For any group at a phase boundary:
//
//	Enqueued + InboxLen == LocalReceived + ITEReceived + SpikeReceived
//	Enqueued == Delivered + QueueLen
type ThreadCounters struct {
	LocalReceived int // self sends, queued immediately
	ITEReceived   int // inter-thread sends from other groups
	SpikeReceived int // spikes forwarded by the filter step
	Enqueued      int // inserts into the event queue
	Delivered     int // events popped and handed to NetReceive
}

// ThreadData is one cell group: an event queue, a locked inbox other groups
// write into, a local tick clock and the mechanism it drives.
//
// Only InterThreadSend may be called from another group's goroutine.
type ThreadData struct {
	id       int
	queue    queue.EventQueue
	lock     sync.Locker
	inbox    []Event
	mech     MechanismHooks
	time     int64
	counters ThreadCounters
}

// NewThreadData creates group id with an empty queue of the configured backend.
// A nil mech is replaced by NopMechanism.
func NewThreadData(id int, qcfg queue.Config, lock sync.Locker, mech MechanismHooks) *ThreadData {
	if mech == nil {
		mech = NopMechanism{}
	}
	if lock == nil {
		lock = NopLocker{}
	}
	return &ThreadData{
		id:    id,
		queue: queue.New(qcfg),
		lock:  lock,
		inbox: make([]Event, 0, 1000),
		mech:  mech,
	}
}

// SelfSend queues an event for this group directly, bypassing the inbox.
func (td *ThreadData) SelfSend(d int, t float64) {
	td.counters.Enqueued++
	td.counters.LocalReceived++
	td.queue.Insert(t, d)
}

// InterThreadSend appends to the inbox under the group lock.
// Safe to call from any goroutine.
func (td *ThreadData) InterThreadSend(d int, t float64) {
	td.lock.Lock()
	td.counters.ITEReceived++
	td.inbox = append(td.inbox, Event{Dest: d, Time: t})
	td.lock.Unlock()
}

// InterSendNoLock appends to the inbox without locking. Only valid while no
// other goroutine can touch this group (the serial filter step).
func (td *ThreadData) InterSendNoLock(d int, t float64) {
	td.counters.SpikeReceived++
	td.inbox = append(td.inbox, Event{Dest: d, Time: t})
}

// EnqueueMyEvents drains the inbox into the event queue.
func (td *ThreadData) EnqueueMyEvents() {
	td.lock.Lock()
	for _, ev := range td.inbox {
		td.counters.Enqueued++
		td.queue.Insert(ev.Time, ev.Dest)
	}
	td.inbox = td.inbox[:0]
	td.lock.Unlock()
}

// Deliver pops every event due at the current tick and hands it to the
// mechanism. Returns the number delivered.
func (td *ThreadData) Deliver() int {
	n := 0
	for {
		ev, ok := td.queue.PopDue(float64(td.time))
		if !ok {
			return n
		}
		if ev.Dest != td.id {
			panic(fmt.Sprintf("ThreadData %d: delivered event for group %d at t=%v", td.id, ev.Dest, ev.Time))
		}
		td.counters.Delivered++
		td.mech.NetReceive(ev)
		n++
	}
}

// LAlgebra runs one tick of the group's compute.
func (td *ThreadData) LAlgebra() {
	td.mech.SetTime(float64(td.time))
	td.mech.Current()
	td.mech.Solve()
	td.mech.State()
}

// IncrementTime advances the local clock by one tick.
func (td *ThreadData) IncrementTime() { td.time++ }

// Time returns the local clock in ticks.
func (td *ThreadData) Time() int64 { return td.time }

// ID returns the group id.
func (td *ThreadData) ID() int { return td.id }

// InboxLen returns the number of events waiting to be enqueued.
func (td *ThreadData) InboxLen() int {
	td.lock.Lock()
	defer td.lock.Unlock()
	return len(td.inbox)
}

// QueueLen returns the number of queued, undelivered events.
func (td *ThreadData) QueueLen() int { return td.queue.Len() }

// Counters returns a snapshot of the counters. ITEReceived is only stable
// between phases.
func (td *ThreadData) Counters() ThreadCounters {
	td.lock.Lock()
	defer td.lock.Unlock()
	return td.counters
}
