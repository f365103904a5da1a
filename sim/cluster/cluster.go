package cluster

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/neuromapp/eventpassing/sim"
	"github.com/neuromapp/eventpassing/sim/spike"
	"github.com/neuromapp/eventpassing/sim/trace"
	"github.com/neuromapp/eventpassing/sim/workload"
)

// rank is one process of the world: its engine and what it was built from.
type rank struct {
	ctx     *sim.RunContext
	pool    *sim.Pool
	routing *sim.PresynTable
	source  *workload.GroupQueues
	mechs   []*sim.CountingMechanism
}

// ClusterSimulator runs N ranks in-process, one goroutine per rank, over a
// shared LocalWorld. Ranks meet only inside the spike exchange.
type ClusterSimulator struct {
	config         DeploymentConfig
	world          *spike.LocalWorld
	ranks          []*rank
	hasRun         bool
	aggregateStats *sim.RunStats
}

// NewClusterSimulator builds every rank's routing table, event source and
// pool. Topology and events are drawn from per-rank RNG partitions of
// config.Seed, so the same config always builds the same world.
// Panics if config.NumRanks < 1; returns an error for an invalid run config
// or workload spec.
func NewClusterSimulator(config DeploymentConfig) (*ClusterSimulator, error) {
	if config.NumRanks < 1 {
		panic("ClusterSimulator: NumRanks must be >= 1")
	}
	if err := config.Run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	if err := config.Workload.Validate(config.NumRanks, config.Run.NumGroups); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(config.Seed))
	world := spike.NewLocalWorld(config.NumRanks)
	ranks := make([]*rank, config.NumRanks)
	for r := range ranks {
		routing, err := workload.MakePresyns(&config.Workload, r, config.NumRanks, config.Run.NumGroups,
			rng.ForRank(sim.SubsystemPresyn, r))
		if err != nil {
			return nil, fmt.Errorf("rank %d presyns: %w", r, err)
		}
		source, err := workload.Generate(&config.Workload, r, config.NumRanks, config.Run.NumGroups,
			config.Run.SimTime, routing.Outputs(), rng.ForRank(sim.SubsystemWorkload, r))
		if err != nil {
			return nil, fmt.Errorf("rank %d workload: %w", r, err)
		}
		rk := &rank{
			ctx:     sim.NewRunContext(config.Run, r),
			routing: routing,
			source:  source,
			mechs:   make([]*sim.CountingMechanism, config.Run.NumGroups),
		}
		rk.pool = sim.NewPool(rk.ctx, routing, source, world.Comm(r), func(g int) sim.MechanismHooks {
			rk.mechs[g] = &sim.CountingMechanism{}
			return rk.mechs[g]
		})
		ranks[r] = rk
		logrus.Debugf("rank %d: %d outputs, %d inputs, %d connections, %d generated events",
			r, len(routing.Outputs()), len(routing.Inputs()), routing.NumConnections(), totalRemaining(source))
	}
	return &ClusterSimulator{config: config, world: world, ranks: ranks}, nil
}

// Run executes every rank to completion and aggregates their stats.
// Panics if called more than once.
func (c *ClusterSimulator) Run() error {
	if c.hasRun {
		panic("ClusterSimulator.Run() called more than once")
	}
	c.hasRun = true

	errs := make([]error, len(c.ranks))
	var wg sync.WaitGroup
	for r, rk := range c.ranks {
		wg.Add(1)
		go func(r int, rk *rank) {
			defer wg.Done()
			errs[r] = rk.pool.Run()
		}(r, rk)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			return fmt.Errorf("rank %d: %w", r, err)
		}
	}

	c.aggregateStats = c.aggregate()
	return nil
}

func (c *ClusterSimulator) aggregate() *sim.RunStats {
	merged := &sim.RunStats{Rank: -1}
	for _, rk := range c.ranks {
		merged.Merge(rk.ctx.Stats)
	}
	return merged
}

// NumRanks returns the world size.
func (c *ClusterSimulator) NumRanks() int { return len(c.ranks) }

// Routing returns rank r's routing table.
func (c *ClusterSimulator) Routing(r int) *sim.PresynTable { return c.ranks[r].routing }

// Source returns rank r's event source.
func (c *ClusterSimulator) Source(r int) *workload.GroupQueues { return c.ranks[r].source }

// RankStats returns per-rank stats in rank order.
// Panics if called before Run() has completed.
func (c *ClusterSimulator) RankStats() []*sim.RunStats {
	if !c.hasRun {
		panic("ClusterSimulator.RankStats() called before Run()")
	}
	out := make([]*sim.RunStats, len(c.ranks))
	for r, rk := range c.ranks {
		out[r] = rk.ctx.Stats
	}
	return out
}

// AggregatedStats returns the merged stats across all ranks.
// Panics if called before Run() has completed.
func (c *ClusterSimulator) AggregatedStats() *sim.RunStats {
	if !c.hasRun {
		panic("ClusterSimulator.AggregatedStats() called before Run()")
	}
	return c.aggregateStats
}

// Traces returns the per-rank exchange traces; entries are nil when tracing
// is off.
func (c *ClusterSimulator) Traces() []*trace.ExchangeTrace {
	out := make([]*trace.ExchangeTrace, len(c.ranks))
	for r, rk := range c.ranks {
		out[r] = rk.ctx.Trace
	}
	return out
}

// NetReceiveCalls returns the number of NetReceive hook calls per rank.
func (c *ClusterSimulator) NetReceiveCalls() []int {
	out := make([]int, len(c.ranks))
	for r, rk := range c.ranks {
		for _, m := range rk.mechs {
			out[r] += m.NetReceiveCalls
		}
	}
	return out
}

// AlgebraSteps returns the number of LAlgebra ticks per rank, summed over groups.
func (c *ClusterSimulator) AlgebraSteps() []int {
	out := make([]int, len(c.ranks))
	for r, rk := range c.ranks {
		for _, m := range rk.mechs {
			out[r] += m.SolveCalls
		}
	}
	return out
}

func totalRemaining(src *workload.GroupQueues) int {
	n := 0
	for g := 0; g < src.NumGroups(); g++ {
		n += src.Remaining(g)
	}
	return n
}
