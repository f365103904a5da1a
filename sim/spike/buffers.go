// Package spike implements the cross-rank spike exchange.
//
// Every epoch each rank contributes the spikes it emitted (SpikeOut) and
// receives the concatenation of every rank's contribution (SpikeIn), its own
// included. The exchange is two-phase: an allgather of per-rank counts, then
// an allgatherv of fixed-size records laid out by the prefix sums of those
// counts. Protocols differ only in how much local work they overlap with the
// first phase.
package spike

import (
	"fmt"

	"github.com/neuromapp/eventpassing/sim/queue"
)

// Buffers holds one rank's exchange state. Spike records reuse queue.Event
// with Dest carrying the source gid.
type Buffers struct {
	SpikeOut []queue.Event // spikes emitted on this rank this epoch
	SpikeIn  []queue.Event // spikes gathered from all ranks
	Nin      []int         // records contributed by each rank
	Displ    []int         // offset of each rank's records in SpikeIn
}

// NewBuffers allocates buffers for a world of nprocs ranks.
// Panics if nprocs < 1.
func NewBuffers(nprocs int) *Buffers {
	if nprocs < 1 {
		panic(fmt.Sprintf("NewBuffers: nprocs must be >= 1, got %d", nprocs))
	}
	return &Buffers{
		SpikeOut: make([]queue.Event, 0),
		SpikeIn:  make([]queue.Event, 0),
		Nin:      make([]int, nprocs),
		Displ:    make([]int, nprocs),
	}
}

// SetDispl computes Displ as the exclusive prefix sum of Nin and resizes
// SpikeIn to hold every incoming record. Returns the total record count.
func (b *Buffers) SetDispl() int {
	total := 0
	for i, n := range b.Nin {
		b.Displ[i] = total
		total += n
	}
	if cap(b.SpikeIn) < total {
		b.SpikeIn = make([]queue.Event, total)
	} else {
		b.SpikeIn = b.SpikeIn[:total]
	}
	return total
}

// Consistent reports whether the gathered sizes account for SpikeIn exactly.
func (b *Buffers) Consistent() bool {
	total := 0
	for _, n := range b.Nin {
		total += n
	}
	return total == len(b.SpikeIn)
}

// Clear empties both spike buffers, keeping their capacity.
// Nin and Displ are rewritten by the next exchange.
func (b *Buffers) Clear() {
	b.SpikeOut = b.SpikeOut[:0]
	b.SpikeIn = b.SpikeIn[:0]
}
