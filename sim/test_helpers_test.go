package sim

import (
	"sync"

	"github.com/neuromapp/eventpassing/sim/spike"
)

// scriptSource releases hand-written events per group in push order.
type scriptSource struct {
	events [][]GenEvent
	heads  []int
}

func newScriptSource(ngroups int) *scriptSource {
	return &scriptSource{events: make([][]GenEvent, ngroups), heads: make([]int, ngroups)}
}

func (s *scriptSource) add(g int, evs ...GenEvent) *scriptSource {
	s.events[g] = append(s.events[g], evs...)
	return s
}

func (s *scriptSource) Pop(g int, now float64) (GenEvent, bool) {
	h := s.heads[g]
	if h >= len(s.events[g]) || s.events[g][h].Time > now {
		return GenEvent{}, false
	}
	s.heads[g]++
	return s.events[g][h], true
}

func (s *scriptSource) Remaining(g int) int { return len(s.events[g]) - s.heads[g] }

// delivery is one NetReceive call and the tick it happened at.
type delivery struct {
	tick float64
	ev   Event
}

// tickRecorder remembers the tick from SetTime; needs Algebra on.
type tickRecorder struct {
	NopMechanism
	tick       float64
	deliveries []delivery
}

func (r *tickRecorder) SetTime(t float64) { r.tick = t }

func (r *tickRecorder) NetReceive(ev Event) {
	r.deliveries = append(r.deliveries, delivery{tick: r.tick, ev: ev})
}

func testConfig(ngroups int) RunConfig {
	return RunConfig{
		NumGroups:     ngroups,
		MinDelay:      5,
		SimTime:       20,
		EventsPerStep: 10,
		Algebra:       true,
	}
}

// rankSetup is one rank's inputs to runWorld.
type rankSetup struct {
	cfg     RunConfig
	routing RoutingTable
	source  EventSource
}

// runWorld runs one pool per rank over a LocalWorld and returns the contexts
// and per-group recorders.
func runWorld(ranks []rankSetup) ([]*RunContext, [][]*tickRecorder, []error) {
	w := spike.NewLocalWorld(len(ranks))
	ctxs := make([]*RunContext, len(ranks))
	recs := make([][]*tickRecorder, len(ranks))
	errs := make([]error, len(ranks))
	pools := make([]*Pool, len(ranks))
	for r, rs := range ranks {
		ctxs[r] = NewRunContext(rs.cfg, r)
		recs[r] = make([]*tickRecorder, rs.cfg.NumGroups)
		rr := r
		pools[r] = NewPool(ctxs[r], rs.routing, rs.source, w.Comm(r), func(g int) MechanismHooks {
			recs[rr][g] = &tickRecorder{}
			return recs[rr][g]
		})
	}
	var wg sync.WaitGroup
	for r := range pools {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = pools[r].Run()
		}(r)
	}
	wg.Wait()
	return ctxs, recs, errs
}
