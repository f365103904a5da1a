package spike

import (
	"fmt"
	"sync"
)

type collective string

const (
	opAllgather  collective = "allgather"
	opAllgatherv collective = "allgatherv"
)

// LocalWorld is an in-process world of ranks that exchange through shared
// memory. Each rank drives its own Communicator from its own goroutine.
type LocalWorld struct {
	size   int
	mu     sync.Mutex
	rounds map[uint64]*round
}

// round is one collective call matched across all ranks by sequence number.
type round struct {
	op       collective
	arrived  int
	consumed int
	ints     []int
	blocks   [][]byte
	err      error
	done     chan struct{}
}

// NewLocalWorld creates a world of size ranks. Panics if size < 1.
func NewLocalWorld(size int) *LocalWorld {
	if size < 1 {
		panic(fmt.Sprintf("NewLocalWorld: size must be >= 1, got %d", size))
	}
	return &LocalWorld{size: size, rounds: make(map[uint64]*round)}
}

// Size returns the number of ranks.
func (w *LocalWorld) Size() int { return w.size }

// Comm returns the communicator for rank. Each rank must call Comm once and
// use the result from a single goroutine.
func (w *LocalWorld) Comm(rank int) *LocalComm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("LocalWorld.Comm: rank %d out of range [0, %d)", rank, w.size))
	}
	return &LocalComm{world: w, rank: rank}
}

// join registers rank's contribution to collective seq and returns the round.
// A kind mismatch poisons the round: every rank completes with an error.
func (w *LocalWorld) join(seq uint64, rank int, op collective, val int, block []byte) *round {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rounds[seq]
	if !ok {
		r = &round{
			op:     op,
			ints:   make([]int, w.size),
			blocks: make([][]byte, w.size),
			done:   make(chan struct{}),
		}
		w.rounds[seq] = r
	}
	if r.op != op && r.err == nil {
		r.err = fmt.Errorf("collective %d: rank %d called %s, others called %s", seq, rank, op, r.op)
	}
	r.ints[rank] = val
	if block != nil {
		r.blocks[rank] = append([]byte(nil), block...)
	}
	r.arrived++
	if r.arrived == w.size {
		close(r.done)
	}
	return r
}

// release drops the round once every rank has read its result.
func (w *LocalWorld) release(seq uint64, r *round) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r.consumed++
	if r.consumed == w.size {
		delete(w.rounds, seq)
	}
}

// LocalComm is one rank's view of a LocalWorld.
type LocalComm struct {
	world *LocalWorld
	rank  int
	seq   uint64
}

func (c *LocalComm) Rank() int { return c.rank }
func (c *LocalComm) Size() int { return c.world.size }

func (c *LocalComm) Allgather(send int, recv []int) error {
	req, err := c.IAllgather(send, recv)
	if err != nil {
		return err
	}
	return req.Wait()
}

func (c *LocalComm) Allgatherv(send, recv []byte, counts, displs []int) error {
	req, err := c.IAllgatherv(send, recv, counts, displs)
	if err != nil {
		return err
	}
	return req.Wait()
}

func (c *LocalComm) IAllgather(send int, recv []int) (Request, error) {
	if len(recv) < c.world.size {
		return nil, fmt.Errorf("allgather: recv has %d slots for %d ranks", len(recv), c.world.size)
	}
	seq := c.seq
	c.seq++
	r := c.world.join(seq, c.rank, opAllgather, send, nil)
	return &localRequest{world: c.world, seq: seq, round: r, finish: func(r *round) error {
		copy(recv, r.ints)
		return nil
	}}, nil
}

func (c *LocalComm) IAllgatherv(send, recv []byte, counts, displs []int) (Request, error) {
	n := c.world.size
	if len(counts) < n || len(displs) < n {
		return nil, fmt.Errorf("allgatherv: counts/displs shorter than %d ranks", n)
	}
	for i := 0; i < n; i++ {
		if displs[i] < 0 || displs[i]+counts[i] > len(recv) {
			return nil, fmt.Errorf("allgatherv: block %d [%d, %d) outside recv of %d bytes",
				i, displs[i], displs[i]+counts[i], len(recv))
		}
	}
	seq := c.seq
	c.seq++
	// non-nil so a zero-length contribution is still recorded
	block := send
	if block == nil {
		block = []byte{}
	}
	r := c.world.join(seq, c.rank, opAllgatherv, len(send), block)
	return &localRequest{world: c.world, seq: seq, round: r, finish: func(r *round) error {
		for i := 0; i < n; i++ {
			if len(r.blocks[i]) != counts[i] {
				return fmt.Errorf("allgatherv: rank %d sent %d bytes, expected %d", i, len(r.blocks[i]), counts[i])
			}
			copy(recv[displs[i]:], r.blocks[i])
		}
		return nil
	}}, nil
}

type localRequest struct {
	world    *LocalWorld
	seq      uint64
	round    *round
	finish   func(*round) error
	complete bool
	err      error
}

func (q *localRequest) Test() bool {
	if q.complete {
		return true
	}
	select {
	case <-q.round.done:
		q.settle()
		return true
	default:
		return false
	}
}

func (q *localRequest) Wait() error {
	if !q.complete {
		<-q.round.done
		q.settle()
	}
	return q.err
}

func (q *localRequest) settle() {
	q.complete = true
	if q.round.err != nil {
		q.err = q.round.err
	} else {
		q.err = q.finish(q.round)
	}
	q.world.release(q.seq, q.round)
}
