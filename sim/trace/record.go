// Package trace provides per-epoch exchange recording for spike-exchange analysis.
// This package has no dependencies on sim/ or sim/cluster/ — it stores pure data types.
package trace

// ExchangeRecord captures one spike exchange at the end of an epoch.
type ExchangeRecord struct {
	Epoch      int
	Clock      int64 // pool time after the epoch's last tick
	Sent       int   // records this rank contributed
	Received   int   // records gathered from all ranks
	Relevant   int   // received records whose gid has local targets
	Forwarded  int   // events enqueued to local groups
	Overlapped bool  // size exchange completed while local work was still pending
	Polls      int   // request polls issued by the non-blocking protocol
}
