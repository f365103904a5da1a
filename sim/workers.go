package sim

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// GroupFun is a unit of per-group work dispatched to the workers.
type GroupFun struct {
	Fun func(g int)
	Nm  string // phase name, for trace logs
}

// groupWorkers runs a function over every group, one goroutine per group,
// with a barrier after each call. With threading off it loops serially.
type groupWorkers struct {
	ngroups  int
	threaded bool
	chans    []chan GroupFun
	wg       sync.WaitGroup
}

func newGroupWorkers(ngroups int, threaded bool) *groupWorkers {
	return &groupWorkers{ngroups: ngroups, threaded: threaded && ngroups > 1}
}

// Start launches one worker goroutine per group.
func (w *groupWorkers) Start() {
	if !w.threaded || w.chans != nil {
		return
	}
	w.chans = make([]chan GroupFun, w.ngroups)
	for g := 0; g < w.ngroups; g++ {
		w.chans[g] = make(chan GroupFun)
		go w.worker(g)
	}
}

func (w *groupWorkers) worker(g int) {
	for fun := range w.chans[g] {
		logrus.Tracef("group %d: %s", g, fun.Nm)
		fun.Fun(g)
		w.wg.Done()
	}
}

// Run calls fun for every group and returns when all have finished.
func (w *groupWorkers) Run(fun func(g int), name string) {
	if !w.threaded {
		logrus.Tracef("%s: %d groups, serial", name, w.ngroups)
		for g := 0; g < w.ngroups; g++ {
			fun(g)
		}
		return
	}
	w.Start()
	for g := 0; g < w.ngroups; g++ {
		w.wg.Add(1)
		w.chans[g] <- GroupFun{Fun: fun, Nm: name}
	}
	w.wg.Wait()
}

// Stop terminates the worker goroutines. Safe to call more than once.
func (w *groupWorkers) Stop() {
	for _, ch := range w.chans {
		close(ch)
	}
	w.chans = nil
}
