// Package queue provides the per-group event queue used by the engine.
//
// Three backends share one contract (EventQueue):
//   - heap:  binary heap, O(log n) insert and pop
//   - splay: self-adjusting tree, amortized O(log n), biased toward recently
//     touched times
//   - binq:  ring of time buckets, O(1) insert for events clustered near the
//     cursor, pop cost proportional to the distance to the next occupied bucket
//
// Equal-time events are delivered in insertion order (FIFO) by every backend.
// Each backend stamps an insertion sequence number and orders by (Time, seq).
//
// Queues are not safe for concurrent use. Each queue is owned by one group.
package queue

import (
	"fmt"
	"sort"
)

// Event is a timed notification for a destination id.
type Event struct {
	Dest int     // destination id (local group id once enqueued)
	Time float64 // delivery time in ticks
}

// EventQueue is an ordered multiset of events keyed by time.
type EventQueue interface {
	// Insert adds an event. Always succeeds, no dedup.
	Insert(t float64, dest int)
	// PeekMin returns the earliest event without removing it.
	PeekMin() (Event, bool)
	// PopDue removes and returns the earliest event iff its time <= threshold.
	// Otherwise the queue is left untouched.
	PopDue(threshold float64) (Event, bool)
	// Len returns the number of queued events.
	Len() int
	// Empty reports whether Len() == 0.
	Empty() bool
}

// Backend names.
const (
	BackendHeap  = "heap"
	BackendSplay = "splay"
	BackendBinQ  = "binq"
)

// Bin queue defaults.
const (
	DefaultBinWidth = 1.0
	DefaultNumBins  = 1024
)

var validBackends = map[string]bool{
	BackendHeap:  true,
	BackendSplay: true,
	BackendBinQ:  true,
	"":           true, // empty defaults to heap
}

// IsValidBackend returns true if name is a recognized backend.
func IsValidBackend(name string) bool {
	return validBackends[name]
}

// ValidBackendNames returns the sorted non-empty backend names.
func ValidBackendNames() []string {
	names := make([]string, 0, len(validBackends))
	for n := range validBackends {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Config selects and parameterizes a backend.
// Zero values select the heap backend and the bin queue defaults.
type Config struct {
	Backend  string  `yaml:"backend"`
	BinWidth float64 `yaml:"bin_width,omitempty"` // binq only: time quantum
	NumBins  int     `yaml:"num_bins,omitempty"`  // binq only: ring size
}

// New creates an EventQueue for cfg.
// Panics on an unknown backend name or a non-positive bin parameter.
func New(cfg Config) EventQueue {
	switch cfg.Backend {
	case BackendHeap, "":
		return NewHeapQueue()
	case BackendSplay:
		return NewSplayQueue()
	case BackendBinQ:
		width := cfg.BinWidth
		if width == 0 {
			width = DefaultBinWidth
		}
		nbins := cfg.NumBins
		if nbins == 0 {
			nbins = DefaultNumBins
		}
		return NewBinQueue(width, nbins)
	default:
		panic(fmt.Sprintf("unknown queue backend %q", cfg.Backend))
	}
}

// key orders events by time, then by insertion sequence.
type key struct {
	t   float64
	seq uint64
}

func (a key) less(b key) bool {
	if a.t != b.t {
		return a.t < b.t
	}
	return a.seq < b.seq
}
