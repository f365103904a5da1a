// Tracks per-rank event and exchange counts for final reporting.

package sim

import "fmt"

// RunStats aggregates the event counts of one rank, or of a whole world
// after Merge.
type RunStats struct {
	Rank int `json:"rank"`

	// emitted by the event source
	SpikesSent int `json:"spikes_sent"`
	ITESent    int `json:"ite_sent"`
	LocalSent  int `json:"local_sent"`

	// exchange and filter
	SpikesReceived  int `json:"spikes_received"`  // records gathered, own included
	RelevantSpikes  int `json:"relevant_spikes"`  // records with a local input presyn
	SpikesForwarded int `json:"spikes_forwarded"` // events handed to local groups

	// summed over groups
	ITEReceived   int `json:"ite_received"`
	LocalReceived int `json:"local_received"`
	SpikeReceived int `json:"spike_received"`
	Enqueued      int `json:"enqueued"`
	Delivered     int `json:"delivered"`
	Remaining     int `json:"remaining"` // left in queues and inboxes at the end

	Epochs           int   `json:"epochs"`
	FinalTime        int64 `json:"final_time"`
	OverlappedEpochs int   `json:"overlapped_epochs"`
	Polls            int   `json:"polls"`
}

// AddThread adds one group's counters.
func (s *RunStats) AddThread(c ThreadCounters) {
	s.ITEReceived += c.ITEReceived
	s.LocalReceived += c.LocalReceived
	s.SpikeReceived += c.SpikeReceived
	s.Enqueued += c.Enqueued
	s.Delivered += c.Delivered
}

// Merge adds o's counts into s. Epochs and FinalTime take the maximum since
// every rank runs the same epochs.
func (s *RunStats) Merge(o *RunStats) {
	s.SpikesSent += o.SpikesSent
	s.ITESent += o.ITESent
	s.LocalSent += o.LocalSent
	s.SpikesReceived += o.SpikesReceived
	s.RelevantSpikes += o.RelevantSpikes
	s.SpikesForwarded += o.SpikesForwarded
	s.ITEReceived += o.ITEReceived
	s.LocalReceived += o.LocalReceived
	s.SpikeReceived += o.SpikeReceived
	s.Enqueued += o.Enqueued
	s.Delivered += o.Delivered
	s.Remaining += o.Remaining
	s.OverlappedEpochs += o.OverlappedEpochs
	s.Polls += o.Polls
	if o.Epochs > s.Epochs {
		s.Epochs = o.Epochs
	}
	if o.FinalTime > s.FinalTime {
		s.FinalTime = o.FinalTime
	}
}

// Print displays the counts at the end of the simulation.
func (s *RunStats) Print(title string) {
	fmt.Printf("=== %s ===\n", title)
	fmt.Printf("Epochs               : %d\n", s.Epochs)
	fmt.Printf("Final Time           : %d ticks\n", s.FinalTime)
	fmt.Printf("Spikes Sent          : %d\n", s.SpikesSent)
	fmt.Printf("Inter-Thread Sent    : %d\n", s.ITESent)
	fmt.Printf("Local Sent           : %d\n", s.LocalSent)
	fmt.Printf("Spikes Received      : %d\n", s.SpikesReceived)
	fmt.Printf("Relevant Spikes      : %d\n", s.RelevantSpikes)
	fmt.Printf("Spikes Forwarded     : %d\n", s.SpikesForwarded)
	fmt.Printf("Inter-Thread Received: %d\n", s.ITEReceived)
	fmt.Printf("Local Received       : %d\n", s.LocalReceived)
	fmt.Printf("Enqueued             : %d\n", s.Enqueued)
	fmt.Printf("Delivered            : %d\n", s.Delivered)
	if s.Remaining > 0 {
		fmt.Printf("Remaining            : %d\n", s.Remaining)
	}
	if s.Epochs > 0 && s.Polls > 0 {
		fmt.Printf("Overlapped Epochs    : %d (%.1f%%)\n", s.OverlappedEpochs,
			100*float64(s.OverlappedEpochs)/float64(s.Epochs))
	}
}
