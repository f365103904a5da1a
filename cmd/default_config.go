package cmd

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/neuromapp/eventpassing/sim"
	"github.com/neuromapp/eventpassing/sim/cluster"
	"github.com/neuromapp/eventpassing/sim/queue"
	"github.com/neuromapp/eventpassing/sim/workload"
)

//go:embed presets.yaml
var presetsYAML []byte

// defaultPreset is used when --preset is not given.
const defaultPreset = "default"

// RunSection holds the per-rank engine parameters of a run file.
type RunSection struct {
	Groups        int     `yaml:"groups"`
	MinDelay      int64   `yaml:"min_delay"`
	SimTime       int64   `yaml:"sim_time"`
	EventsPerStep int     `yaml:"events_per_step"`
	Algebra       bool    `yaml:"algebra"`
	Threaded      bool    `yaml:"threaded"`
	Protocol      string  `yaml:"protocol"`
	Queue         string  `yaml:"queue"`
	BinWidth      float64 `yaml:"bin_width"`
	NumBins       int     `yaml:"num_bins"`
	Trace         string  `yaml:"trace"`
}

// RunFile is one complete run description: a preset entry or a --config file.
type RunFile struct {
	Ranks    int           `yaml:"ranks"`
	Seed     int64         `yaml:"seed"`
	Run      RunSection    `yaml:"run"`
	Workload workload.Spec `yaml:"workload"`
}

// PresetsFile represents the presets.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type PresetsFile struct {
	Version string             `yaml:"version"`
	Presets map[string]RunFile `yaml:"presets"`
}

// decodeStrict decodes YAML into out, rejecting unknown keys.
// Keys absent from data leave the matching fields of out untouched.
func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

// loadPresets parses the built-in presets.
func loadPresets() (*PresetsFile, error) {
	var pf PresetsFile
	if err := decodeStrict(presetsYAML, &pf); err != nil {
		return nil, fmt.Errorf("parsing built-in presets: %w", err)
	}
	return &pf, nil
}

// presetNames returns the built-in preset names, sorted.
func presetNames() ([]string, error) {
	pf, err := loadPresets()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pf.Presets))
	for name := range pf.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// resolveRunFile starts from the named preset and overlays the YAML file at
// configPath, if any. Only keys present in the file replace preset values.
func resolveRunFile(preset, configPath string) (RunFile, error) {
	pf, err := loadPresets()
	if err != nil {
		return RunFile{}, err
	}
	if preset == "" {
		preset = defaultPreset
	}
	rf, ok := pf.Presets[preset]
	if !ok {
		names, _ := presetNames()
		return RunFile{}, fmt.Errorf("unknown preset %q; valid presets: %v", preset, names)
	}
	if configPath == "" {
		return rf, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return RunFile{}, fmt.Errorf("reading run config: %w", err)
	}
	if err := decodeStrict(data, &rf); err != nil {
		return RunFile{}, fmt.Errorf("parsing run config %s: %w", configPath, err)
	}
	return rf, nil
}

// Deployment converts the run file into a cluster deployment.
func (rf RunFile) Deployment() cluster.DeploymentConfig {
	return cluster.DeploymentConfig{
		NumRanks: rf.Ranks,
		Seed:     rf.Seed,
		Run: sim.RunConfig{
			NumGroups:     rf.Run.Groups,
			MinDelay:      rf.Run.MinDelay,
			SimTime:       rf.Run.SimTime,
			EventsPerStep: rf.Run.EventsPerStep,
			Algebra:       rf.Run.Algebra,
			Threaded:      rf.Run.Threaded,
			Protocol:      rf.Run.Protocol,
			Queue: queue.Config{
				Backend:  rf.Run.Queue,
				BinWidth: rf.Run.BinWidth,
				NumBins:  rf.Run.NumBins,
			},
			TraceLevel: rf.Run.Trace,
		},
		Workload: rf.Workload,
	}
}

// Validate checks the run file the way the engine will, so configuration
// errors surface before any rank is built.
func (rf RunFile) Validate() error {
	if rf.Ranks < 1 {
		return fmt.Errorf("ranks must be >= 1, got %d", rf.Ranks)
	}
	d := rf.Deployment()
	if err := d.Run.Validate(); err != nil {
		return fmt.Errorf("invalid run section: %w", err)
	}
	if err := d.Workload.Validate(rf.Ranks, rf.Run.Groups); err != nil {
		return fmt.Errorf("invalid workload section: %w", err)
	}
	return nil
}
