package sim

import (
	"fmt"

	"github.com/neuromapp/eventpassing/sim/queue"
	"github.com/neuromapp/eventpassing/sim/spike"
	"github.com/neuromapp/eventpassing/sim/trace"
)

// RunConfig groups the parameters of one rank's run.
// Every rank of a world must use the same MinDelay and SimTime so that all
// ranks run the same number of epochs.
type RunConfig struct {
	NumGroups     int          // cell groups on this rank (must be >= 1)
	MinDelay      int64        // epoch length in ticks (must be >= 1)
	SimTime       int64        // run until pool time reaches this (must be >= 0)
	EventsPerStep int          // max events released per group per tick (must be >= 1)
	Algebra       bool         // run LAlgebra each tick
	Threaded      bool         // one goroutine per group, real locks
	Protocol      string       // "blocking" (default) or "nonblocking"
	Queue         queue.Config // event queue backend
	TraceLevel    string       // "none" (default) or "exchange"
}

// Validate reports the first invalid field.
func (c RunConfig) Validate() error {
	if c.NumGroups < 1 {
		return fmt.Errorf("NumGroups must be >= 1, got %d", c.NumGroups)
	}
	if c.MinDelay < 1 {
		return fmt.Errorf("MinDelay must be >= 1, got %d", c.MinDelay)
	}
	if c.SimTime < 0 {
		return fmt.Errorf("SimTime must be >= 0, got %d", c.SimTime)
	}
	if c.EventsPerStep < 1 {
		return fmt.Errorf("EventsPerStep must be >= 1, got %d", c.EventsPerStep)
	}
	if !spike.IsValidProtocol(c.Protocol) {
		return fmt.Errorf("unknown protocol %q; valid options: %v", c.Protocol, spike.ValidProtocolNames())
	}
	if !queue.IsValidBackend(c.Queue.Backend) {
		return fmt.Errorf("unknown queue backend %q; valid options: %v", c.Queue.Backend, queue.ValidBackendNames())
	}
	if c.Queue.BinWidth < 0 {
		return fmt.Errorf("Queue.BinWidth must be >= 0, got %v", c.Queue.BinWidth)
	}
	if c.Queue.NumBins < 0 {
		return fmt.Errorf("Queue.NumBins must be >= 0, got %d", c.Queue.NumBins)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid options: none, exchange", c.TraceLevel)
	}
	return nil
}

// Epochs returns the number of epochs Run executes.
func (c RunConfig) Epochs() int {
	if c.SimTime <= 0 {
		return 0
	}
	return int((c.SimTime + c.MinDelay - 1) / c.MinDelay)
}

// RunContext carries one rank's configuration and its result sinks.
type RunContext struct {
	Config RunConfig
	Rank   int
	Stats  *RunStats
	Trace  *trace.ExchangeTrace // nil unless TraceLevel is "exchange"
}

// NewRunContext creates a context with empty stats and, if enabled, a trace.
func NewRunContext(cfg RunConfig, rank int) *RunContext {
	ctx := &RunContext{
		Config: cfg,
		Rank:   rank,
		Stats:  &RunStats{Rank: rank},
	}
	if trace.TraceLevel(cfg.TraceLevel) == trace.TraceLevelExchange {
		ctx.Trace = trace.NewExchangeTrace(trace.TraceConfig{Level: trace.TraceLevelExchange}, rank)
	}
	return ctx
}
