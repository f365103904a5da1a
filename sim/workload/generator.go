package workload

import (
	"fmt"
	"math/rand"

	"github.com/neuromapp/eventpassing/sim"
)

// Generate builds rank's event source for a run of simTime ticks.
// outputs are the gids rank may emit spikes under.
// Deterministic given the same spec, rank and rng state.
func Generate(spec *Spec, rank, nprocs, ngroups int, simTime int64, outputs []int, rng *rand.Rand) (*GroupQueues, error) {
	if err := spec.Validate(nprocs, ngroups); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	switch spec.Generator {
	case GeneratorPoisson:
		dist := NewContinuousDistribution(nprocs, rank, nprocs*spec.NumOut)
		rate := spikeRate(spec.NumSpikes, simTime, nprocs)
		if rate == 0 {
			return NewGroupQueues(ngroups), nil
		}
		sampler := NewIntervalSampler(spec.Arrival, spec.CV, rate)
		return GenerateSpikeTrain(sampler, simTime, ngroups, dist, rng), nil
	default:
		if spec.PercentSpike > 0 && len(outputs) == 0 {
			return nil, fmt.Errorf("percent_spike %d needs at least one output gid", spec.PercentSpike)
		}
		return GenerateUniform(spec, ngroups, simTime, outputs, rng), nil
	}
}

// GenerateUniform draws EventsPerTick events per group per tick in [0, simTime).
// Each event is a spike (under a random output gid), an inter-thread event (to
// a random other group) or a local event, with the spec's percentages.
func GenerateUniform(spec *Spec, ngroups int, simTime int64, outputs []int, rng *rand.Rand) *GroupQueues {
	q := NewGroupQueues(ngroups)
	for g := 0; g < ngroups; g++ {
		for t := int64(0); t < simTime; t++ {
			for i := 0; i < spec.EventsPerTick; i++ {
				q.Push(g, uniformEvent(spec, g, ngroups, float64(t), outputs, rng))
			}
		}
	}
	return q
}

func uniformEvent(spec *Spec, g, ngroups int, t float64, outputs []int, rng *rand.Rand) sim.GenEvent {
	percent := rng.Intn(100)
	switch {
	case percent < spec.PercentSpike:
		return sim.GenEvent{Dest: outputs[rng.Intn(len(outputs))], Time: t, Kind: sim.Spike}
	case percent < spec.PercentSpike+spec.PercentITE:
		dst := g
		for dst == g {
			dst = rng.Intn(ngroups)
		}
		return sim.GenEvent{Dest: dst, Time: t, Kind: sim.InterThread}
	default:
		return sim.GenEvent{Dest: g, Time: t, Kind: sim.Local}
	}
}

// spikeRate is the per-rank spike rate in spikes per tick when nspikes are
// expected over all nprocs ranks and simTime ticks. Returns 0 when no spikes
// are expected.
func spikeRate(nspikes int, simTime int64, nprocs int) float64 {
	if nspikes <= 0 || simTime <= 0 {
		return 0
	}
	mean := float64(simTime) / float64(nspikes)
	return 1.0 / (mean * float64(nprocs))
}

// GeneratePoisson draws spikes with exponential inter-spike intervals until
// simTime. nspikes is the expected total over all nprocs ranks, so each rank
// runs at rate nspikes/(simTime*nprocs). Each spike comes from a gid drawn
// uniformly in dist's block and goes to group gid % ngroups.
func GeneratePoisson(nspikes int, simTime int64, nprocs, ngroups int, dist *ContinuousDistribution, rng *rand.Rand) *GroupQueues {
	rate := spikeRate(nspikes, simTime, nprocs)
	if rate == 0 {
		return NewGroupQueues(ngroups)
	}
	return GenerateSpikeTrain(&ExponentialSampler{rate: rate}, simTime, ngroups, dist, rng)
}

// GenerateSpikeTrain draws one rank's spike train with intervals from
// sampler until simTime, assigning gids and groups as GeneratePoisson does.
func GenerateSpikeTrain(sampler IntervalSampler, simTime int64, ngroups int, dist *ContinuousDistribution, rng *rand.Rand) *GroupQueues {
	q := NewGroupQueues(ngroups)
	if simTime <= 0 || dist.LocalCells() == 0 {
		return q
	}
	t := 0.0
	for {
		t += sampler.SampleISI(rng)
		if t >= float64(simTime) {
			break
		}
		gid := dist.LocalToGlobal(rng.Intn(dist.LocalCells()))
		q.Push(gid%ngroups, sim.GenEvent{Dest: gid, Time: t, Kind: sim.Spike})
	}
	return q
}
