// Package sim provides the epoch-driven event-passing engine.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - thread.go: ThreadData, one cell group's queue, inbox, clock and counters
//   - event.go: the event kinds a group can emit (spike, inter-thread, local)
//   - pool.go: the epoch loop, the send/enqueue/algebra/deliver phases, the
//     spike exchange and the filter step
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/queue/: priority-queue backends (heap, splay, bin queue)
//   - sim/spike/: spike buffers, wire codec, communicators and exchange protocols
//   - sim/workload/: event generators and presyn (routing table) construction
//   - sim/cluster/: multi-rank orchestration over an in-process world
//   - sim/trace/: per-epoch exchange records
//   - sim/report/: run persistence (SQLite) and JSON summaries
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - queue.EventQueue: ordered event storage per group
//   - RoutingTable: gid → local group mapping for incoming spikes
//   - EventSource: per-group stream of generated events
//   - MechanismHooks: per-tick compute and per-event receive callbacks
//   - spike.Communicator / spike.Protocol: collective transport and exchange
//
// # Time
//
// Every group advances in lockstep, one integer tick at a time. An epoch is
// MinDelay ticks; spikes cross ranks only at epoch boundaries. Events carry
// float64 times and are delivered at the first tick whose value is >= the
// event time.
package sim
