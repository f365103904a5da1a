package sim

import (
	"fmt"

	"github.com/neuromapp/eventpassing/sim/queue"
)

// Event is a timed notification; Dest is a local group id once queued and a
// source gid while travelling as a spike record.
type Event = queue.Event

// Kind classifies a generated event by how it leaves its group.
type Kind int

const (
	// Spike is broadcast to every rank; Dest is the emitting gid.
	Spike Kind = iota
	// InterThread goes to another group on the same rank; Dest is that group.
	InterThread
	// Local stays in the emitting group.
	Local
)

func (k Kind) String() string {
	switch k {
	case Spike:
		return "spike"
	case InterThread:
		return "inter-thread"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// GenEvent is an event produced by an EventSource.
type GenEvent struct {
	Dest int
	Time float64 // emission time in ticks
	Kind Kind
}

// EventSource supplies the events each group emits.
//
// Pop returns the next event for group if its emission time is <= now.
// Pop is called concurrently for distinct groups, never for the same group.
type EventSource interface {
	Pop(group int, now float64) (GenEvent, bool)
	Remaining(group int) int
}
