package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_PushAndSlice(t *testing.T) {
	b := New[int](4)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 4, b.Cap())

	for i := 1; i <= 3; i++ {
		b.Push(i)
	}
	assert.Equal(t, []int{1, 2, 3}, b.Slice())
}

func TestBuffer_OverwritesOldestPastCapacity(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 6; i++ {
		b.Push(i)
	}
	require.Equal(t, 4, b.Len())
	assert.Equal(t, []int{3, 4, 5, 6}, b.Slice())
}

func TestBuffer_GetPanicsOutOfRange(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	assert.Panics(t, func() { b.Get(-1) })
	assert.Panics(t, func() { b.Get(1) })
}

func TestNew_PanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { New[int](3) })
	assert.Panics(t, func() { New[int](0) })
}

func TestMinMax(t *testing.T) {
	b := New[int](8)
	for _, v := range []int{5, 1, 9, 3} {
		b.Push(v)
	}
	min, max := MinMax(b)
	assert.Equal(t, 1, min)
	assert.Equal(t, 9, max)
}

func TestMinMax_PanicsOnEmpty(t *testing.T) {
	b := New[int](2)
	assert.Panics(t, func() { MinMax(b) })
}
