package spike

// Communicator is the collective transport the exchange runs over.
//
// Every rank of a world must issue the same sequence of collectives. A rank
// that skips one leaves the others blocked forever; there is no timeout.
type Communicator interface {
	Rank() int
	Size() int
	// Allgather gathers one int from every rank into recv[0:Size()].
	Allgather(send int, recv []int) error
	// Allgatherv gathers variable-length byte blocks; rank r's block lands at
	// recv[displs[r]:displs[r]+counts[r]].
	Allgatherv(send, recv []byte, counts, displs []int) error
	// IAllgather starts an Allgather. recv is written on completion.
	IAllgather(send int, recv []int) (Request, error)
	// IAllgatherv starts an Allgatherv. recv is written on completion.
	IAllgatherv(send, recv []byte, counts, displs []int) (Request, error)
}

// Request is an in-flight collective.
type Request interface {
	// Test reports completion without blocking.
	Test() bool
	// Wait blocks until completion and returns the collective's error.
	Wait() error
}
