package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromapp/eventpassing/sim/queue"
)

func newThread(id int, threaded bool, mech MechanismHooks) *ThreadData {
	return NewThreadData(id, queue.Config{}, NewLocker(threaded), mech)
}

func TestThreadData_SelfSend_QueuedImmediately(t *testing.T) {
	td := newThread(0, false, nil)
	td.SelfSend(0, 0)

	assert.Equal(t, 1, td.QueueLen())
	assert.Equal(t, 0, td.InboxLen())
	assert.Equal(t, 1, td.Deliver())

	c := td.Counters()
	assert.Equal(t, ThreadCounters{LocalReceived: 1, Enqueued: 1, Delivered: 1}, c)
}

func TestThreadData_InterThreadSend_WaitsForEnqueue(t *testing.T) {
	td := newThread(1, true, nil)
	td.InterThreadSend(1, 0)
	td.InterThreadSend(1, 0)

	assert.Equal(t, 2, td.InboxLen())
	assert.Equal(t, 0, td.Deliver(), "inbox events are not visible to Deliver")

	td.EnqueueMyEvents()
	assert.Equal(t, 0, td.InboxLen())
	assert.Equal(t, 2, td.QueueLen())
	assert.Equal(t, 2, td.Deliver())

	c := td.Counters()
	assert.Equal(t, 2, c.ITEReceived)
	assert.Equal(t, 2, c.Enqueued)
	assert.Equal(t, 2, c.Delivered)
}

func TestThreadData_InterSendNoLock_CountsSpikes(t *testing.T) {
	td := newThread(0, false, nil)
	td.InterSendNoLock(0, 3)
	td.EnqueueMyEvents()
	assert.Equal(t, 1, td.Counters().SpikeReceived)
	assert.Equal(t, 1, td.QueueLen())
}

func TestThreadData_Deliver_NothingBeforeDue(t *testing.T) {
	td := newThread(0, false, nil)
	td.SelfSend(0, 2)

	for tick := 0; tick < 2; tick++ {
		assert.Equal(t, 0, td.Deliver(), "tick %d", tick)
		td.IncrementTime()
	}
	assert.Equal(t, int64(2), td.Time())
	assert.Equal(t, 1, td.Deliver())
}

func TestThreadData_Deliver_FractionalTimeAtNextTick(t *testing.T) {
	td := newThread(0, false, nil)
	td.SelfSend(0, 0.5)
	assert.Equal(t, 0, td.Deliver())
	td.IncrementTime()
	assert.Equal(t, 1, td.Deliver())
}

func TestThreadData_Deliver_WrongDestination_Panics(t *testing.T) {
	td := newThread(3, false, nil)
	td.SelfSend(4, 0)
	assert.Panics(t, func() { td.Deliver() })
}

func TestThreadData_LAlgebra_HookOrder(t *testing.T) {
	mech := &CountingMechanism{Record: true}
	td := newThread(0, false, mech)
	td.IncrementTime()
	td.IncrementTime()
	td.LAlgebra()

	assert.Equal(t, []string{"set_time", "current", "solve", "state"}, mech.Order)
	assert.Equal(t, 2.0, mech.LastTime)
	assert.Equal(t, 0, mech.NetReceiveCalls)
}

func TestThreadData_NetReceive_OncePerDelivery(t *testing.T) {
	mech := &CountingMechanism{}
	td := newThread(0, false, mech)
	for i := 0; i < 5; i++ {
		td.SelfSend(0, 0)
	}
	td.Deliver()
	assert.Equal(t, 5, mech.NetReceiveCalls)
}

func TestThreadData_ConcurrentInterThreadSend(t *testing.T) {
	td := newThread(0, true, nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				td.InterThreadSend(0, float64(i))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 8000, td.InboxLen())
	assert.Equal(t, 8000, td.Counters().ITEReceived)
	td.EnqueueMyEvents()
	assert.Equal(t, 8000, td.QueueLen())
}

func TestNewLocker(t *testing.T) {
	_, isMutex := NewLocker(true).(*sync.Mutex)
	assert.True(t, isMutex)
	_, isNop := NewLocker(false).(NopLocker)
	assert.True(t, isNop)
}
