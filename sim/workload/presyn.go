package workload

import (
	"fmt"
	"math/rand"

	"github.com/neuromapp/eventpassing/sim"
)

// MakePresyns builds rank's routing table.
//
// Rank r owns output gids [r*nout, (r+1)*nout). With more than one rank, nin
// gids are drawn at random from the other ranks' outputs; each connects to
// the same netcons_per distinct groups, drawn at random once per rank. A
// single rank has outputs only.
func MakePresyns(spec *Spec, rank, nprocs, ngroups int, rng *rand.Rand) (*sim.PresynTable, error) {
	if err := spec.Validate(nprocs, ngroups); err != nil {
		return nil, err
	}
	if rank < 0 || rank >= nprocs {
		return nil, fmt.Errorf("rank %d out of range [0, %d)", rank, nprocs)
	}
	nout := spec.NumOut
	outputs := make([]int, 0, nout)
	if nprocs == 1 {
		for gid := 0; gid < nout; gid++ {
			outputs = append(outputs, gid)
		}
		return sim.NewPresynTable(outputs, nil), nil
	}

	available := make([]int, 0, (nprocs-1)*nout)
	for gid := 0; gid < nprocs*nout; gid++ {
		if gid >= rank*nout && gid < rank*nout+nout {
			outputs = append(outputs, gid)
		} else {
			available = append(available, gid)
		}
	}

	inputs := make(map[int][]int)
	if spec.NumIn > 0 && spec.NetconsPer > 0 {
		rng.Shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })
		groups := rng.Perm(ngroups)[:spec.NetconsPer]
		for _, gid := range available[:spec.NumIn] {
			inputs[gid] = append([]int(nil), groups...)
		}
	}
	return sim.NewPresynTable(outputs, inputs), nil
}
