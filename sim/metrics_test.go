package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStats_Merge(t *testing.T) {
	a := &RunStats{Rank: 0, SpikesSent: 3, SpikesReceived: 5, Delivered: 10, Epochs: 4, FinalTime: 20, Polls: 2}
	b := &RunStats{Rank: 1, SpikesSent: 2, SpikesReceived: 5, Delivered: 7, Epochs: 4, FinalTime: 20, OverlappedEpochs: 1}

	total := &RunStats{}
	total.Merge(a)
	total.Merge(b)

	assert.Equal(t, 5, total.SpikesSent)
	assert.Equal(t, 10, total.SpikesReceived)
	assert.Equal(t, 17, total.Delivered)
	assert.Equal(t, 4, total.Epochs, "epochs are shared, not summed")
	assert.Equal(t, int64(20), total.FinalTime)
	assert.Equal(t, 2, total.Polls)
	assert.Equal(t, 1, total.OverlappedEpochs)
}

func TestRunStats_AddThread(t *testing.T) {
	s := &RunStats{}
	s.AddThread(ThreadCounters{LocalReceived: 1, ITEReceived: 2, SpikeReceived: 3, Enqueued: 6, Delivered: 5})
	s.AddThread(ThreadCounters{LocalReceived: 1})
	assert.Equal(t, 2, s.LocalReceived)
	assert.Equal(t, 2, s.ITEReceived)
	assert.Equal(t, 3, s.SpikeReceived)
	assert.Equal(t, 6, s.Enqueued)
	assert.Equal(t, 5, s.Delivered)
}

func TestRunStats_Print_NoPanicOnZero(t *testing.T) {
	assert.NotPanics(t, func() { (&RunStats{}).Print("empty") })
}
