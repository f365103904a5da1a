package sim

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/neuromapp/eventpassing/sim/spike"
	"github.com/neuromapp/eventpassing/sim/trace"
)

// sendCounts is written only by the owning group's worker.
type sendCounts struct {
	spikes int
	ite    int
	local  int
}

// Pool drives the cell groups of one rank through epochs of MinDelay ticks
// and exchanges spikes with the other ranks at each epoch boundary.
//
// Each tick runs four phases across all groups, with a barrier after each:
// send (release due events from the source), enqueue (drain inboxes into
// queues), algebra (optional compute) and deliver (pop due events, advance
// the clock). The last tick of an epoch hands its enqueue, algebra and deliver
// phases to the exchange protocol so they can overlap the size exchange.
type Pool struct {
	ctx       *RunContext
	cfg       RunConfig
	routing   RoutingTable
	source    EventSource
	comm      spike.Communicator
	protocol  spike.Protocol
	threads   []*ThreadData
	buf       *spike.Buffers
	spikeLock sync.Locker
	sends     []sendCounts
	workers   *groupWorkers
	time      int64
	epoch     int
}

// NewPool creates the groups of one rank. mechFactory may be nil, in which
// case every group gets a NopMechanism.
// Panics if the configuration is invalid or a collaborator is nil.
func NewPool(ctx *RunContext, routing RoutingTable, source EventSource, comm spike.Communicator,
	mechFactory func(group int) MechanismHooks) *Pool {
	if ctx == nil || routing == nil || source == nil || comm == nil {
		panic("NewPool: ctx, routing, source and comm are required")
	}
	cfg := ctx.Config
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("NewPool: %v", err))
	}
	p := &Pool{
		ctx:       ctx,
		cfg:       cfg,
		routing:   routing,
		source:    source,
		comm:      comm,
		protocol:  spike.NewProtocol(cfg.Protocol),
		threads:   make([]*ThreadData, cfg.NumGroups),
		buf:       spike.NewBuffers(comm.Size()),
		spikeLock: NewLocker(cfg.Threaded),
		sends:     make([]sendCounts, cfg.NumGroups),
		workers:   newGroupWorkers(cfg.NumGroups, cfg.Threaded),
	}
	for g := range p.threads {
		var mech MechanismHooks = NopMechanism{}
		if mechFactory != nil {
			mech = mechFactory(g)
		}
		p.threads[g] = NewThreadData(g, cfg.Queue, NewLocker(cfg.Threaded), mech)
	}
	return p
}

// SendEvents releases up to EventsPerStep due events of group g.
func (p *Pool) SendEvents(g int) {
	td := p.threads[g]
	now := float64(td.Time())
	for i := 0; i < p.cfg.EventsPerStep; i++ {
		ev, ok := p.source.Pop(g, now)
		if !ok {
			return
		}
		switch ev.Kind {
		case Spike:
			if !p.routing.FindOutput(ev.Dest) {
				panic(fmt.Sprintf("rank %d group %d: spike from gid %d, which is not an output of this rank",
					p.ctx.Rank, g, ev.Dest))
			}
			p.spikeLock.Lock()
			p.buf.SpikeOut = append(p.buf.SpikeOut, Event{Dest: ev.Dest, Time: ev.Time + float64(p.cfg.MinDelay)})
			p.spikeLock.Unlock()
			p.sends[g].spikes++
		case InterThread:
			if ev.Dest == g {
				panic(fmt.Sprintf("rank %d group %d: inter-thread event addressed to itself", p.ctx.Rank, g))
			}
			if ev.Dest < 0 || ev.Dest >= len(p.threads) {
				panic(fmt.Sprintf("rank %d group %d: inter-thread event for unknown group %d", p.ctx.Rank, g, ev.Dest))
			}
			p.threads[ev.Dest].InterThreadSend(ev.Dest, ev.Time+float64(p.cfg.MinDelay))
			p.sends[g].ite++
		case Local:
			td.SelfSend(g, ev.Time)
			p.sends[g].local++
		default:
			panic(fmt.Sprintf("rank %d group %d: unknown event kind %v", p.ctx.Rank, g, ev.Kind))
		}
	}
}

func (p *Pool) sendPhase() { p.workers.Run(p.SendEvents, "send") }

func (p *Pool) enqueuePhase() {
	p.workers.Run(func(g int) { p.threads[g].EnqueueMyEvents() }, "enqueue")
}

func (p *Pool) algebraPhase() {
	if !p.cfg.Algebra {
		return
	}
	p.workers.Run(func(g int) { p.threads[g].LAlgebra() }, "algebra")
}

func (p *Pool) deliverPhase() {
	p.workers.Run(func(g int) {
		td := p.threads[g]
		td.Deliver()
		td.IncrementTime()
	}, "deliver")
}

// tick runs one full tick without any exchange.
func (p *Pool) tick() {
	p.sendPhase()
	p.enqueuePhase()
	p.algebraPhase()
	p.deliverPhase()
}

// FixedStep runs one epoch: MinDelay ticks, the spike exchange overlapped
// with the last tick, and the filter step.
func (p *Pool) FixedStep() error {
	for i := int64(1); i < p.cfg.MinDelay; i++ {
		p.tick()
	}
	p.sendPhase()
	sent := len(p.buf.SpikeOut)
	res, err := p.protocol.Exchange(p.comm, p.buf, []func(){p.enqueuePhase, p.algebraPhase, p.deliverPhase})
	if err != nil {
		return fmt.Errorf("rank %d epoch %d: %w", p.ctx.Rank, p.epoch, err)
	}
	p.time += p.cfg.MinDelay

	received, relevant, forwarded := p.Filter()
	logrus.Debugf("rank %d epoch %d t=%d: sent=%d received=%d relevant=%d forwarded=%d",
		p.ctx.Rank, p.epoch, p.time, sent, received, relevant, forwarded)

	if res.Overlapped {
		p.ctx.Stats.OverlappedEpochs++
	}
	p.ctx.Stats.Polls += res.Polls
	if p.ctx.Trace.Enabled() {
		p.ctx.Trace.RecordExchange(trace.ExchangeRecord{
			Epoch:      p.epoch,
			Clock:      p.time,
			Sent:       sent,
			Received:   received,
			Relevant:   relevant,
			Forwarded:  forwarded,
			Overlapped: res.Overlapped,
			Polls:      res.Polls,
		})
	}
	p.epoch++
	return nil
}

// Filter routes every gathered spike record to the local groups its gid
// connects to, then clears the spike buffers. Runs serially.
// Panics if the gathered sizes do not account for SpikeIn.
func (p *Pool) Filter() (received, relevant, forwarded int) {
	if !p.buf.Consistent() {
		panic(fmt.Sprintf("rank %d: spike buffers inconsistent: nin=%v, len(SpikeIn)=%d",
			p.ctx.Rank, p.buf.Nin, len(p.buf.SpikeIn)))
	}
	for _, rec := range p.buf.SpikeIn {
		received++
		groups, ok := p.routing.FindInput(rec.Dest)
		if !ok {
			continue
		}
		relevant++
		for _, g := range groups {
			if g < 0 || g >= len(p.threads) {
				panic(fmt.Sprintf("rank %d: input gid %d routed to unknown group %d", p.ctx.Rank, rec.Dest, g))
			}
			p.threads[g].InterSendNoLock(g, rec.Time)
			forwarded++
		}
	}
	p.buf.Clear()

	p.ctx.Stats.SpikesReceived += received
	p.ctx.Stats.RelevantSpikes += relevant
	p.ctx.Stats.SpikesForwarded += forwarded
	return received, relevant, forwarded
}

// Run executes epochs until pool time reaches SimTime, then accumulates stats.
func (p *Pool) Run() error {
	defer p.Close()
	logrus.Infof("rank %d: running %d groups for %d ticks (min delay %d, protocol %s, queue %s)",
		p.ctx.Rank, p.cfg.NumGroups, p.cfg.SimTime, p.cfg.MinDelay, p.protocol.Name(), queueName(p.cfg))
	for p.time < p.cfg.SimTime {
		if err := p.FixedStep(); err != nil {
			return err
		}
	}
	p.AccumulateStats()
	logrus.Infof("rank %d: finished at t=%d after %d epochs, delivered %d events",
		p.ctx.Rank, p.time, p.epoch, p.ctx.Stats.Delivered)
	return nil
}

// AccumulateStats sums the group counters into the run stats.
// Panics if any group's clock disagrees with the pool clock.
func (p *Pool) AccumulateStats() {
	s := p.ctx.Stats
	s.SpikesSent, s.ITESent, s.LocalSent = 0, 0, 0
	s.ITEReceived, s.LocalReceived, s.SpikeReceived, s.Enqueued, s.Delivered = 0, 0, 0, 0, 0
	s.Remaining = 0
	for g, td := range p.threads {
		if td.Time() != p.time {
			panic(fmt.Sprintf("rank %d: group %d at t=%d, pool at t=%d", p.ctx.Rank, g, td.Time(), p.time))
		}
		s.AddThread(td.Counters())
		s.Remaining += td.InboxLen() + td.QueueLen()
		s.SpikesSent += p.sends[g].spikes
		s.ITESent += p.sends[g].ite
		s.LocalSent += p.sends[g].local
	}
	s.Epochs = p.epoch
	s.FinalTime = p.time
	if s.Remaining > 0 {
		logrus.Warnf("rank %d: %d events still pending at t=%d", p.ctx.Rank, s.Remaining, p.time)
	}
}

// Close stops the group workers. Safe to call more than once.
func (p *Pool) Close() {
	p.workers.Stop()
}

// NumGroups returns the number of cell groups.
func (p *Pool) NumGroups() int { return len(p.threads) }

// Time returns the pool clock in ticks.
func (p *Pool) Time() int64 { return p.time }

// Epoch returns the number of completed epochs.
func (p *Pool) Epoch() int { return p.epoch }

// Thread returns group g.
func (p *Pool) Thread(g int) *ThreadData { return p.threads[g] }

// Buffers returns the spike buffers.
func (p *Pool) Buffers() *spike.Buffers { return p.buf }

// Stats returns the run stats being filled.
func (p *Pool) Stats() *RunStats { return p.ctx.Stats }

func queueName(cfg RunConfig) string {
	if cfg.Queue.Backend == "" {
		return "heap"
	}
	return cfg.Queue.Backend
}
