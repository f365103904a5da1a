package spike

import (
	"fmt"
	"sort"
)

// Protocol names.
const (
	ProtocolBlocking    = "blocking"
	ProtocolNonBlocking = "nonblocking"
)

var validProtocols = map[string]bool{
	ProtocolBlocking:    true,
	ProtocolNonBlocking: true,
	"":                  true, // empty defaults to blocking
}

// IsValidProtocol returns true if name is a recognized exchange protocol.
func IsValidProtocol(name string) bool {
	return validProtocols[name]
}

// ValidProtocolNames returns the sorted non-empty protocol names.
func ValidProtocolNames() []string {
	names := make([]string, 0, len(validProtocols))
	for n := range validProtocols {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Result describes how an exchange ran.
type Result struct {
	Overlapped bool // sizes arrived before the overlapped work was finished
	Polls      int  // completion tests issued while overlapping
}

// Protocol performs one two-phase exchange of buf.SpikeOut into buf.SpikeIn.
//
// overlap holds the local work that does not touch the spike buffers. Every
// function in it has run exactly once by the time Exchange returns, whatever
// the protocol.
type Protocol interface {
	Name() string
	Exchange(comm Communicator, buf *Buffers, overlap []func()) (Result, error)
}

// NewProtocol returns the protocol registered under name.
// Panics on an unknown name.
func NewProtocol(name string) Protocol {
	switch name {
	case ProtocolBlocking, "":
		return Blocking{}
	case ProtocolNonBlocking:
		return NonBlocking{}
	default:
		panic(fmt.Sprintf("unknown exchange protocol %q", name))
	}
}

// Blocking runs the local work first, then both collectives back to back.
type Blocking struct{}

func (Blocking) Name() string { return ProtocolBlocking }

func (Blocking) Exchange(comm Communicator, buf *Buffers, overlap []func()) (Result, error) {
	for _, f := range overlap {
		f()
	}
	if err := comm.Allgather(len(buf.SpikeOut), buf.Nin); err != nil {
		return Result{}, fmt.Errorf("size exchange: %w", err)
	}
	buf.SetDispl()
	send, recv, counts, displs := payload(buf)
	if err := comm.Allgatherv(send, recv, counts, displs); err != nil {
		return Result{}, fmt.Errorf("spike exchange: %w", err)
	}
	if err := DecodeRecords(buf.SpikeIn, recv); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

// NonBlocking starts the size exchange, then runs the local work, testing the
// request after each piece. The payload exchange is started as soon as sizes
// are known.
type NonBlocking struct{}

func (NonBlocking) Name() string { return ProtocolNonBlocking }

func (NonBlocking) Exchange(comm Communicator, buf *Buffers, overlap []func()) (Result, error) {
	var res Result
	sizeReq, err := comm.IAllgather(len(buf.SpikeOut), buf.Nin)
	if err != nil {
		return res, fmt.Errorf("size exchange: %w", err)
	}

	var spikeReq Request
	var recv []byte
	startPayload := func() error {
		if err := sizeReq.Wait(); err != nil {
			return fmt.Errorf("size exchange: %w", err)
		}
		buf.SetDispl()
		var send []byte
		var counts, displs []int
		send, recv, counts, displs = payload(buf)
		spikeReq, err = comm.IAllgatherv(send, recv, counts, displs)
		if err != nil {
			return fmt.Errorf("spike exchange: %w", err)
		}
		return nil
	}

	var failed error
	for i, f := range overlap {
		f()
		if spikeReq != nil || failed != nil {
			continue
		}
		res.Polls++
		if sizeReq.Test() {
			res.Overlapped = i < len(overlap)-1
			failed = startPayload()
		}
	}
	if failed != nil {
		return res, failed
	}
	if spikeReq == nil {
		if err := startPayload(); err != nil {
			return res, err
		}
	}
	if err := spikeReq.Wait(); err != nil {
		return res, fmt.Errorf("spike exchange: %w", err)
	}
	if err := DecodeRecords(buf.SpikeIn, recv); err != nil {
		return res, err
	}
	return res, nil
}

// payload encodes SpikeOut and sizes the byte-level counts and displacements
// from Nin and Displ. SetDispl must have run.
func payload(buf *Buffers) (send, recv []byte, counts, displs []int) {
	send = EncodeRecords(make([]byte, 0, len(buf.SpikeOut)*RecordSize), buf.SpikeOut)
	recv = make([]byte, len(buf.SpikeIn)*RecordSize)
	counts = make([]int, len(buf.Nin))
	displs = make([]int, len(buf.Displ))
	for i := range buf.Nin {
		counts[i] = buf.Nin[i] * RecordSize
		displs[i] = buf.Displ[i] * RecordSize
	}
	return send, recv, counts, displs
}
