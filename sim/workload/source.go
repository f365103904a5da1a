package workload

import (
	"fmt"

	"github.com/neuromapp/eventpassing/sim"
)

// GroupQueues is a pre-generated sim.EventSource: one time-ordered FIFO of
// events per group.
//
// Pop and Remaining for distinct groups may run concurrently. Push must
// finish before the first Pop.
type GroupQueues struct {
	events [][]sim.GenEvent
	heads  []int
}

// NewGroupQueues creates empty queues for ngroups groups.
func NewGroupQueues(ngroups int) *GroupQueues {
	if ngroups < 1 {
		panic(fmt.Sprintf("NewGroupQueues: ngroups must be >= 1, got %d", ngroups))
	}
	return &GroupQueues{
		events: make([][]sim.GenEvent, ngroups),
		heads:  make([]int, ngroups),
	}
}

// Push appends an event to group's queue.
// Panics if ev is earlier than the event pushed before it; Pop releases
// events in push order.
func (q *GroupQueues) Push(group int, ev sim.GenEvent) {
	evs := q.events[group]
	if n := len(evs); n > 0 && ev.Time < evs[n-1].Time {
		panic(fmt.Sprintf("GroupQueues.Push: group %d event at %v after one at %v", group, ev.Time, evs[n-1].Time))
	}
	q.events[group] = append(evs, ev)
}

// Pop returns group's next event if it is due at now.
func (q *GroupQueues) Pop(group int, now float64) (sim.GenEvent, bool) {
	h := q.heads[group]
	if h >= len(q.events[group]) || q.events[group][h].Time > now {
		return sim.GenEvent{}, false
	}
	q.heads[group]++
	return q.events[group][h], true
}

// Remaining returns the number of events group has not released yet.
func (q *GroupQueues) Remaining(group int) int {
	return len(q.events[group]) - q.heads[group]
}

// NumGroups returns the number of groups.
func (q *GroupQueues) NumGroups() int { return len(q.events) }

// Counts returns the total number of events of each kind, released or not.
func (q *GroupQueues) Counts() map[sim.Kind]int {
	counts := make(map[sim.Kind]int)
	for _, evs := range q.events {
		for _, ev := range evs {
			counts[ev.Kind]++
		}
	}
	return counts
}
