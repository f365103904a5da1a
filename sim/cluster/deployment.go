package cluster

import (
	"github.com/neuromapp/eventpassing/sim"
	"github.com/neuromapp/eventpassing/sim/workload"
)

// DeploymentConfig describes a world where every rank runs the same engine
// configuration and builds its events and routing from the same workload
// spec. NumRanks must be >= 1.
type DeploymentConfig struct {
	NumRanks int
	Seed     int64
	Run      sim.RunConfig
	Workload workload.Spec
}
