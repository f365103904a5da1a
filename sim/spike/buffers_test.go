package spike

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuromapp/eventpassing/sim/queue"
)

func TestNewBuffers_InvalidSize_Panics(t *testing.T) {
	assert.Panics(t, func() { NewBuffers(0) })
}

func TestBuffers_SetDispl_PrefixSum(t *testing.T) {
	b := NewBuffers(4)
	copy(b.Nin, []int{3, 0, 2, 5})

	total := b.SetDispl()

	assert.Equal(t, 10, total)
	assert.Equal(t, []int{0, 3, 3, 5}, b.Displ)
	assert.Len(t, b.SpikeIn, 10)
	assert.True(t, b.Consistent())
}

func TestBuffers_Consistent_DetectsMismatch(t *testing.T) {
	b := NewBuffers(2)
	copy(b.Nin, []int{1, 1})
	b.SpikeIn = append(b.SpikeIn, queue.Event{Dest: 1})
	assert.False(t, b.Consistent())
}

func TestBuffers_Clear_KeepsCapacity(t *testing.T) {
	b := NewBuffers(1)
	b.SpikeOut = append(b.SpikeOut, queue.Event{Dest: 1}, queue.Event{Dest: 2})
	b.Nin[0] = 2
	b.SetDispl()
	c := cap(b.SpikeOut)

	b.Clear()

	assert.Empty(t, b.SpikeOut)
	assert.Empty(t, b.SpikeIn)
	assert.Equal(t, c, cap(b.SpikeOut))
}
