package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPresets_AllValid(t *testing.T) {
	pf, err := loadPresets()
	require.NoError(t, err)
	require.Contains(t, pf.Presets, defaultPreset)
	for name, rf := range pf.Presets {
		assert.NoError(t, rf.Validate(), "preset %s", name)
	}
}

func TestPresetNames_Sorted(t *testing.T) {
	names, err := presetNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "miniapp", "overlap"}, names)
}

func TestResolveRunFile_EmptyPresetIsDefault(t *testing.T) {
	a, err := resolveRunFile("", "")
	require.NoError(t, err)
	b, err := resolveRunFile(defaultPreset, "")
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestResolveRunFile_UnknownPreset(t *testing.T) {
	_, err := resolveRunFile("huge", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid presets")
}

// GIVEN a config file that sets only some keys
// THEN the preset supplies every other value.
func TestResolveRunFile_ConfigOverlaysPreset(t *testing.T) {
	path := writeTempConfig(t, `
ranks: 2
run:
  protocol: nonblocking
workload:
  nin: 4
`)
	rf, err := resolveRunFile("default", path)
	require.NoError(t, err)
	base, err := resolveRunFile("default", "")
	require.NoError(t, err)

	assert.Equal(t, 2, rf.Ranks)
	assert.Equal(t, "nonblocking", rf.Run.Protocol)
	assert.Equal(t, 4, rf.Workload.NumIn)
	assert.Equal(t, base.Run.Groups, rf.Run.Groups)
	assert.Equal(t, base.Run.MinDelay, rf.Run.MinDelay)
	assert.Equal(t, base.Workload.NumOut, rf.Workload.NumOut)
	assert.Equal(t, base.Seed, rf.Seed)
	assert.NoError(t, rf.Validate())
}

func TestResolveRunFile_UnknownKeyRejected(t *testing.T) {
	path := writeTempConfig(t, `
run:
  min_dealy: 3
`)
	_, err := resolveRunFile("default", path)
	assert.Error(t, err, "typos must be rejected")
}

func TestResolveRunFile_MissingFile(t *testing.T) {
	_, err := resolveRunFile("default", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRunFile_Validate(t *testing.T) {
	base, err := resolveRunFile("default", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*RunFile)
	}{
		{"no ranks", func(rf *RunFile) { rf.Ranks = 0 }},
		{"bad protocol", func(rf *RunFile) { rf.Run.Protocol = "rdma" }},
		{"bad queue", func(rf *RunFile) { rf.Run.Queue = "calendar" }},
		{"zero min delay", func(rf *RunFile) { rf.Run.MinDelay = 0 }},
		{"too many inputs", func(rf *RunFile) { rf.Workload.NumIn = 1000 }},
		{"netcons over groups", func(rf *RunFile) { rf.Workload.NetconsPer = rf.Run.Groups + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := base
			tt.mutate(&rf)
			assert.Error(t, rf.Validate())
		})
	}
}

func TestRunFile_Deployment(t *testing.T) {
	rf := RunFile{
		Ranks: 3,
		Seed:  9,
		Run: RunSection{
			Groups: 4, MinDelay: 2, SimTime: 10, EventsPerStep: 5,
			Algebra: true, Threaded: true, Protocol: "nonblocking",
			Queue: "binq", BinWidth: 0.5, NumBins: 32, Trace: "exchange",
		},
	}
	d := rf.Deployment()
	assert.Equal(t, 3, d.NumRanks)
	assert.Equal(t, int64(9), d.Seed)
	assert.Equal(t, 4, d.Run.NumGroups)
	assert.Equal(t, int64(2), d.Run.MinDelay)
	assert.Equal(t, "binq", d.Run.Queue.Backend)
	assert.Equal(t, 0.5, d.Run.Queue.BinWidth)
	assert.Equal(t, 32, d.Run.Queue.NumBins)
	assert.Equal(t, "exchange", d.Run.TraceLevel)
	assert.True(t, d.Run.Threaded)
}
