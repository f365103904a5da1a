package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromapp/eventpassing/sim/spike"
)

func singleRankPool(cfg RunConfig, routing RoutingTable, src EventSource) *Pool {
	return NewPool(NewRunContext(cfg, 0), routing, src, spike.NewLocalWorld(1).Comm(0), nil)
}

// Rank 0 emits gid 5 at t=7 with min delay 5; rank 1 routes gid 5 to groups
// 2 and 7, which must each receive exactly one event at t=12, on tick 12.
// Min delay is added when the spike is sent, so emitting at 7 is what leaves
// a pending spike with time 12 after the exchange.
func TestPool_TwoRankSpikeDelivery(t *testing.T) {
	for _, proto := range []string{spike.ProtocolBlocking, spike.ProtocolNonBlocking} {
		t.Run(proto, func(t *testing.T) {
			cfg0 := testConfig(1)
			cfg0.Protocol = proto
			cfg1 := testConfig(8)
			cfg1.Protocol = proto

			ctxs, recs, errs := runWorld([]rankSetup{
				{cfg0, NewPresynTable([]int{5}, nil), newScriptSource(1).add(0, GenEvent{Dest: 5, Time: 7, Kind: Spike})},
				{cfg1, NewPresynTable([]int{10}, map[int][]int{5: {2, 7}}), newScriptSource(8)},
			})
			require.NoError(t, errs[0])
			require.NoError(t, errs[1])

			for g, rec := range recs[1] {
				if g == 2 || g == 7 {
					require.Len(t, rec.deliveries, 1, "group %d", g)
					assert.Equal(t, delivery{tick: 12, ev: Event{Dest: g, Time: 12}}, rec.deliveries[0])
				} else {
					assert.Empty(t, rec.deliveries, "group %d", g)
				}
			}

			s0, s1 := ctxs[0].Stats, ctxs[1].Stats
			assert.Equal(t, 1, s0.SpikesSent)
			assert.Equal(t, 1, s0.SpikesReceived, "own spikes come back")
			assert.Equal(t, 0, s0.RelevantSpikes)
			assert.Equal(t, 1, s1.SpikesReceived)
			assert.Equal(t, 1, s1.RelevantSpikes)
			assert.Equal(t, 2, s1.SpikesForwarded)
			assert.Equal(t, 2, s1.Delivered)
			assert.Equal(t, 4, s1.Epochs)
			assert.Equal(t, int64(20), s1.FinalTime)
		})
	}
}

// busySource feeds every group with local, inter-thread and spike events on
// every tick up to simTime.
func busySource(ngroups int, simTime int64, gid int) *scriptSource {
	src := newScriptSource(ngroups)
	for g := 0; g < ngroups; g++ {
		for tick := int64(0); tick < simTime; tick++ {
			tt := float64(tick)
			src.add(g,
				GenEvent{Dest: g, Time: tt, Kind: Local},
				GenEvent{Dest: (g + 1) % ngroups, Time: tt, Kind: InterThread},
				GenEvent{Dest: gid, Time: tt + 0.5, Kind: Spike},
			)
		}
	}
	return src
}

func TestPool_SingleRank_Conservation(t *testing.T) {
	for _, threaded := range []bool{false, true} {
		cfg := testConfig(4)
		cfg.Threaded = threaded
		ctxs, recs, errs := runWorld([]rankSetup{
			{cfg, NewPresynTable([]int{0}, map[int][]int{0: {1, 3}}), busySource(4, cfg.SimTime, 0)},
		})
		require.NoError(t, errs[0])
		s := ctxs[0].Stats

		assert.Equal(t, 80, s.LocalSent)
		assert.Equal(t, s.LocalSent, s.LocalReceived)
		assert.Equal(t, s.ITESent, s.ITEReceived)
		assert.Equal(t, s.SpikesSent, s.SpikesReceived)
		assert.Equal(t, 2*s.SpikesReceived, s.SpikesForwarded)
		assert.Equal(t, s.SpikesForwarded, s.SpikeReceived)
		assert.Equal(t, s.LocalReceived+s.ITEReceived+s.SpikeReceived, s.Delivered+s.Remaining)

		for g, rec := range recs[0] {
			for _, d := range rec.deliveries {
				assert.GreaterOrEqual(t, d.tick, d.ev.Time, "group %d: early delivery", g)
				assert.Equal(t, math.Ceil(d.ev.Time), d.tick, "group %d: late delivery", g)
				assert.Equal(t, g, d.ev.Dest)
			}
		}
	}
}

func TestPool_SerialAndThreadedAgree(t *testing.T) {
	stats := make([]*RunStats, 2)
	for i, threaded := range []bool{false, true} {
		cfg := testConfig(6)
		cfg.Threaded = threaded
		ctxs, _, errs := runWorld([]rankSetup{
			{cfg, NewPresynTable([]int{0}, map[int][]int{0: {5}}), busySource(6, cfg.SimTime, 0)},
		})
		require.NoError(t, errs[0])
		stats[i] = ctxs[0].Stats
	}
	assert.Equal(t, stats[0], stats[1])
}

func TestPool_SendEvents_RespectsEventsPerStep(t *testing.T) {
	cfg := testConfig(1)
	cfg.EventsPerStep = 2
	src := newScriptSource(1)
	for i := 0; i < 5; i++ {
		src.add(0, GenEvent{Dest: 0, Time: 0, Kind: Local})
	}
	p := singleRankPool(cfg, NewPresynTable([]int{0}, nil), src)
	defer p.Close()

	p.SendEvents(0)
	assert.Equal(t, 2, p.Thread(0).QueueLen())
	assert.Equal(t, 3, src.Remaining(0), "backlog rolls over")
}

func TestPool_SendEvents_AddsMinDelay(t *testing.T) {
	cfg := testConfig(2)
	src := newScriptSource(2).add(0,
		GenEvent{Dest: 1, Time: 0, Kind: InterThread},
		GenEvent{Dest: 4, Time: 0, Kind: Spike},
		GenEvent{Dest: 0, Time: 0, Kind: Local},
	)
	p := singleRankPool(cfg, NewPresynTable([]int{4}, nil), src)
	defer p.Close()

	p.SendEvents(0)

	assert.Equal(t, []Event{{Dest: 4, Time: 5}}, p.Buffers().SpikeOut)
	assert.Equal(t, 1, p.Thread(1).InboxLen())
	p.Thread(1).EnqueueMyEvents()
	assert.Equal(t, 1, p.Thread(1).QueueLen())
	assert.Equal(t, 1, p.Thread(0).QueueLen(), "local event keeps its time")
	assert.Equal(t, 1, p.Thread(0).Deliver())
}

func TestPool_StructuralViolations_Panic(t *testing.T) {
	t.Run("spike from non-output gid", func(t *testing.T) {
		src := newScriptSource(2).add(0, GenEvent{Dest: 3, Time: 0, Kind: Spike})
		p := singleRankPool(testConfig(2), NewPresynTable([]int{4}, nil), src)
		defer p.Close()
		assert.Panics(t, func() { p.SendEvents(0) })
	})
	t.Run("spike with empty output set", func(t *testing.T) {
		src := newScriptSource(2).add(0, GenEvent{Dest: 0, Time: 0, Kind: Spike})
		p := singleRankPool(testConfig(2), NewPresynTable(nil, nil), src)
		defer p.Close()
		assert.Panics(t, func() { p.SendEvents(0) })
	})
	t.Run("inter-thread to self", func(t *testing.T) {
		src := newScriptSource(2).add(1, GenEvent{Dest: 1, Time: 0, Kind: InterThread})
		p := singleRankPool(testConfig(2), NewPresynTable([]int{0}, nil), src)
		defer p.Close()
		assert.Panics(t, func() { p.SendEvents(1) })
	})
	t.Run("inconsistent buffers", func(t *testing.T) {
		p := singleRankPool(testConfig(2), NewPresynTable([]int{0}, nil), newScriptSource(2))
		defer p.Close()
		p.Buffers().Nin[0] = 3
		assert.Panics(t, func() { p.Filter() })
	})
	t.Run("group clock drift", func(t *testing.T) {
		p := singleRankPool(testConfig(2), NewPresynTable([]int{0}, nil), newScriptSource(2))
		defer p.Close()
		p.Thread(1).IncrementTime()
		assert.Panics(t, func() { p.AccumulateStats() })
	})
}

func TestNewPool_InvalidConfig_Panics(t *testing.T) {
	cfg := testConfig(2)
	cfg.MinDelay = 0
	assert.Panics(t, func() {
		singleRankPool(cfg, NewPresynTable(nil, nil), newScriptSource(2))
	})
	assert.Panics(t, func() {
		NewPool(NewRunContext(testConfig(1), 0), nil, newScriptSource(1), spike.NewLocalWorld(1).Comm(0), nil)
	})
}

func TestPool_Run_EpochCount(t *testing.T) {
	cfg := testConfig(1)
	cfg.SimTime = 12 // ceil(12/5) epochs
	p := singleRankPool(cfg, NewPresynTable([]int{0}, nil), newScriptSource(1))
	require.NoError(t, p.Run())
	assert.Equal(t, 3, p.Epoch())
	assert.Equal(t, int64(15), p.Time())
	assert.Equal(t, cfg.Epochs(), p.Epoch())
}

func TestPool_Trace_OneRecordPerEpoch(t *testing.T) {
	cfg := testConfig(2)
	cfg.TraceLevel = "exchange"
	ctxs, _, errs := runWorld([]rankSetup{
		{cfg, NewPresynTable([]int{0}, map[int][]int{0: {1}}), busySource(2, cfg.SimTime, 0)},
	})
	require.NoError(t, errs[0])
	tr := ctxs[0].Trace
	require.NotNil(t, tr)
	require.Len(t, tr.Exchanges, 4)
	sent := 0
	for i, r := range tr.Exchanges {
		assert.Equal(t, i, r.Epoch)
		assert.Equal(t, int64(5*(i+1)), r.Clock)
		assert.Equal(t, r.Sent, r.Received)
		sent += r.Sent
	}
	assert.Equal(t, ctxs[0].Stats.SpikesSent, sent)
}
