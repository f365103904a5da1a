package workload

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Generator names.
const (
	GeneratorUniform = "uniform"
	GeneratorPoisson = "poisson"
)

var validGenerators = map[string]bool{
	GeneratorUniform: true,
	GeneratorPoisson: true,
	"":               true, // empty defaults to uniform
}

// IsValidGenerator reports whether name is a recognized generator.
func IsValidGenerator(name string) bool {
	return validGenerators[name]
}

// Spec describes the events and the topology of one run. Every rank builds
// its own source and routing table from the same Spec.
type Spec struct {
	Generator string `yaml:"generator"` // "uniform" (default) or "poisson"

	// uniform: events drawn per group per tick, split by percentage
	EventsPerTick int `yaml:"events_per_tick"`
	PercentSpike  int `yaml:"percent_spike"`
	PercentITE    int `yaml:"percent_ite"` // the rest are local

	// poisson: expected spikes over the whole world and run, and the
	// inter-spike interval process
	NumSpikes int     `yaml:"num_spikes"`
	Arrival   string  `yaml:"arrival"` // "poisson" (default), "gamma" or "weibull"
	CV        float64 `yaml:"cv"`      // interval coefficient of variation; 0 means 1

	// topology
	NumOut     int `yaml:"nout"`        // output gids per rank
	NumIn      int `yaml:"nin"`         // input gids per rank, drawn from other ranks' outputs
	NetconsPer int `yaml:"netcons_per"` // local groups each input connects to
}

// LoadSpec reads and parses a YAML workload file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks the spec against a world of nprocs ranks with ngroups
// groups each.
func (s *Spec) Validate(nprocs, ngroups int) error {
	if !IsValidGenerator(s.Generator) {
		return fmt.Errorf("unknown generator %q; valid: uniform, poisson", s.Generator)
	}
	if nprocs < 1 {
		return fmt.Errorf("nprocs must be >= 1, got %d", nprocs)
	}
	if ngroups < 1 {
		return fmt.Errorf("ngroups must be >= 1, got %d", ngroups)
	}
	if s.NumOut < 1 {
		return fmt.Errorf("nout must be >= 1, got %d", s.NumOut)
	}
	if s.NumIn < 0 {
		return fmt.Errorf("nin must be non-negative, got %d", s.NumIn)
	}
	if limit := (nprocs - 1) * s.NumOut; s.NumIn > limit {
		return fmt.Errorf("nin %d exceeds the %d output gids of the other %d ranks", s.NumIn, limit, nprocs-1)
	}
	if s.NetconsPer < 0 || s.NetconsPer > ngroups {
		return fmt.Errorf("netcons_per must be in [0, %d], got %d", ngroups, s.NetconsPer)
	}
	switch s.Generator {
	case GeneratorPoisson:
		if s.NumSpikes < 0 {
			return fmt.Errorf("num_spikes must be non-negative, got %d", s.NumSpikes)
		}
		if !IsValidArrival(s.Arrival) {
			return fmt.Errorf("unknown arrival %q; valid: poisson, gamma, weibull", s.Arrival)
		}
		if s.CV < 0 {
			return fmt.Errorf("cv must be non-negative, got %v", s.CV)
		}
	default:
		if s.EventsPerTick < 0 {
			return fmt.Errorf("events_per_tick must be non-negative, got %d", s.EventsPerTick)
		}
		if s.PercentSpike < 0 || s.PercentITE < 0 || s.PercentSpike+s.PercentITE > 100 {
			return fmt.Errorf("percent_spike (%d) and percent_ite (%d) must be non-negative and sum to <= 100",
				s.PercentSpike, s.PercentITE)
		}
		if s.PercentITE > 0 && ngroups < 2 {
			return fmt.Errorf("percent_ite %d needs at least 2 groups, got %d", s.PercentITE, ngroups)
		}
	}
	return nil
}
