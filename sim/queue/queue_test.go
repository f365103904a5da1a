package queue

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigs = []Config{
	{Backend: BackendHeap},
	{Backend: BackendSplay},
	{Backend: BackendBinQ},
	{Backend: BackendBinQ, BinWidth: 0.25, NumBins: 4}, // forces overflow traffic
}

func name(cfg Config) string {
	if cfg.NumBins != 0 {
		return cfg.Backend + "-small"
	}
	return cfg.Backend
}

// op is one step of a randomized insert / due-pop interleaving.
type op struct {
	insert bool
	t      float64
	dest   int
}

// randomOps produces inserts at or after the current threshold and pops at a
// non-decreasing threshold, like the delivery loop does.
func randomOps(seed int64, n int) []op {
	rng := rand.New(rand.NewSource(seed))
	ops := make([]op, 0, n)
	now := 0.0
	for i := 0; i < n; i++ {
		if rng.Intn(3) == 0 {
			now += float64(rng.Intn(3))
			ops = append(ops, op{t: now})
			continue
		}
		// coarse times so equal-time ties are common
		t := now + float64(rng.Intn(20))/2
		ops = append(ops, op{insert: true, t: t, dest: i})
	}
	return ops
}

// extremeOps mixes near-threshold inserts with times far outside any ring
// window, including values whose quantum overflows int64 and the infinities.
func extremeOps(seed int64, n int) []op {
	far := []float64{1e8, -1e8, 1e19, -1e19, 1e300, math.Inf(1), math.Inf(-1)}
	rng := rand.New(rand.NewSource(seed))
	ops := make([]op, 0, n)
	now := 0.0
	for i := 0; i < n; i++ {
		switch rng.Intn(6) {
		case 0:
			now += float64(rng.Intn(50))
			ops = append(ops, op{t: now})
		case 1:
			ops = append(ops, op{insert: true, t: far[rng.Intn(len(far))], dest: i})
		case 2:
			ops = append(ops, op{insert: true, t: now - float64(rng.Intn(40)), dest: i})
		default:
			ops = append(ops, op{insert: true, t: now + float64(rng.Intn(200))/4, dest: i})
		}
	}
	// flush everything but +Inf, then everything
	return append(ops, op{t: math.MaxFloat64}, op{t: math.Inf(1)})
}

// replay runs ops against q and drains whatever remains, returning every
// popped event in pop order plus the number inserted.
func replay(q EventQueue, ops []op) (popped []Event, inserted int) {
	for _, o := range ops {
		if o.insert {
			q.Insert(o.t, o.dest)
			inserted++
			continue
		}
		for {
			ev, ok := q.PopDue(o.t)
			if !ok {
				break
			}
			popped = append(popped, ev)
		}
	}
	return popped, inserted
}

func TestNew_UnknownBackend_Panics(t *testing.T) {
	assert.Panics(t, func() { New(Config{Backend: "fibonacci"}) })
}

func TestNew_EmptyBackend_DefaultsToHeap(t *testing.T) {
	_, ok := New(Config{}).(*HeapQueue)
	assert.True(t, ok)
}

func TestIsValidBackend(t *testing.T) {
	assert.True(t, IsValidBackend("heap"))
	assert.True(t, IsValidBackend("splay"))
	assert.True(t, IsValidBackend("binq"))
	assert.True(t, IsValidBackend(""))
	assert.False(t, IsValidBackend("calendar"))
	assert.Equal(t, []string{"binq", "heap", "splay"}, ValidBackendNames())
}

func TestEventQueue_EmptyQueue(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(name(cfg), func(t *testing.T) {
			q := New(cfg)
			assert.True(t, q.Empty())
			assert.Equal(t, 0, q.Len())
			_, ok := q.PeekMin()
			assert.False(t, ok)
			_, ok = q.PopDue(1e9)
			assert.False(t, ok, "underflow is a silent no-op")
		})
	}
}

func TestEventQueue_PopDue_LeavesFutureEvents(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(name(cfg), func(t *testing.T) {
			q := New(cfg)
			q.Insert(5, 1)
			q.Insert(3, 2)

			ev, ok := q.PopDue(2.9)
			assert.False(t, ok)
			assert.Equal(t, Event{}, ev)
			assert.Equal(t, 2, q.Len())

			ev, ok = q.PopDue(3)
			require.True(t, ok, "threshold is inclusive")
			assert.Equal(t, Event{Dest: 2, Time: 3}, ev)

			min, ok := q.PeekMin()
			require.True(t, ok)
			assert.Equal(t, Event{Dest: 1, Time: 5}, min)
			assert.Equal(t, 1, q.Len(), "PeekMin must not remove")
		})
	}
}

// Ties are FIFO for every backend.
func TestEventQueue_EqualTimes_FIFO(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(name(cfg), func(t *testing.T) {
			q := New(cfg)
			q.Insert(7, 100)
			q.Insert(2, 1)
			q.Insert(7, 101)
			q.Insert(7, 102)
			q.Insert(2, 2)

			var got []int
			for {
				ev, ok := q.PopDue(10)
				if !ok {
					break
				}
				got = append(got, ev.Dest)
			}
			assert.Equal(t, []int{1, 2, 100, 101, 102}, got)
		})
	}
}

func TestEventQueue_PriorityInvariant(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(name(cfg), func(t *testing.T) {
			for seed := int64(1); seed <= 20; seed++ {
				popped, _ := replay(New(cfg), randomOps(seed, 400))
				for i := 1; i < len(popped); i++ {
					require.LessOrEqual(t, popped[i-1].Time, popped[i].Time,
						"seed %d: pop %d out of order", seed, i)
				}
			}
		})
	}
}

func TestEventQueue_Conservation(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(name(cfg), func(t *testing.T) {
			for seed := int64(1); seed <= 20; seed++ {
				q := New(cfg)
				popped, inserted := replay(q, randomOps(seed, 400))
				assert.Equal(t, inserted, len(popped)+q.Len(), "seed %d", seed)
			}
		})
	}
}

// With FIFO ties declared for all backends, the pop sequences are identical,
// which implies the aggregate sets are equal too.
func TestEventQueue_CrossBackendEquivalence(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		ops := randomOps(seed, 500)
		want, _ := replay(New(Config{Backend: BackendHeap}), ops)
		for _, cfg := range allConfigs[1:] {
			got, _ := replay(New(cfg), ops)
			assert.Equal(t, want, got, "seed %d backend %s", seed, name(cfg))
		}
	}
}

func TestEventQueue_CrossBackendEquivalence_ExtremeTimes(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		ops := extremeOps(seed, 600)
		want, inserted := replay(New(Config{Backend: BackendHeap}), ops)
		require.Len(t, want, inserted, "seed %d: flush must drain the heap", seed)
		for _, cfg := range allConfigs[1:] {
			got, _ := replay(New(cfg), ops)
			assert.Equal(t, want, got, "seed %d backend %s", seed, name(cfg))
		}
	}
}

func TestEventQueue_NoDedup(t *testing.T) {
	for _, cfg := range allConfigs {
		t.Run(name(cfg), func(t *testing.T) {
			q := New(cfg)
			for i := 0; i < 5; i++ {
				q.Insert(1, 9)
			}
			assert.Equal(t, 5, q.Len())
		})
	}
}
