package rtos

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_OneShotFiresOnceAtExpiry(t *testing.T) {
	k := NewKernel(WithTickRateHz(100))
	var fired atomic.Int32
	timer := k.StartTimer("once", 3, false, func(*Timer) {
		fired.Add(1)
	}, nil)

	k.Tick()
	k.Tick()
	assert.EqualValues(t, 0, fired.Load(), "must not fire before its period elapses")

	k.Tick() // third tick reaches the 3-tick period
	assert.EqualValues(t, 1, fired.Load())

	k.Tick()
	k.Tick()
	k.Tick()
	assert.EqualValues(t, 1, fired.Load(), "one-shot must not fire again")
	assert.False(t, timer.IsRunning())
}

func TestTimer_AutoReloadFiresEveryPeriod(t *testing.T) {
	k := NewKernel(WithTickRateHz(100))
	var fired atomic.Int32
	timer := k.StartTimer("repeat", 2, true, func(*Timer) {
		fired.Add(1)
	}, nil)

	for i := 0; i < 6; i++ {
		k.Tick()
	}
	assert.EqualValues(t, 3, fired.Load())
	assert.True(t, timer.IsRunning())
}

func TestTimer_StopPreventsFurtherFiring(t *testing.T) {
	k := NewKernel(WithTickRateHz(100))
	var fired atomic.Int32
	timer := k.StartTimer("stoppable", 2, true, func(*Timer) {
		fired.Add(1)
	}, nil)

	k.Tick()
	k.Tick()
	assert.EqualValues(t, 1, fired.Load())

	k.StopTimer(timer)
	for i := 0; i < 10; i++ {
		k.Tick()
	}
	assert.EqualValues(t, 1, fired.Load())
}

// TestSemaphore_BoundedWaitTimesOutViaTick confirms a bounded wait on a
// never-given semaphore expires only once enough ticks have elapsed, driven
// entirely by explicit Tick calls rather than wall-clock sleeps.
func TestSemaphore_BoundedWaitTimesOutViaTick(t *testing.T) {
	k := NewKernel(WithTickRateHz(1000)) // 1 tick per ms
	sem := k.NewSemaphore("s", 0, 1)
	takeErr := make(chan error, 1)

	_, err := k.CreateTask("waiter", func(self *Task) {
		takeErr <- sem.Take(self, 20, false)
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return sem.block.count() == 1
	}, time.Second, time.Millisecond)

	for i := 0; i < 19; i++ {
		k.Tick()
		select {
		case e := <-takeErr:
			t.Fatalf("timed out early on tick %d with err=%v", i, e)
		default:
		}
	}

	k.Tick() // 20th tick reaches the deadline

	select {
	case e := <-takeErr:
		assert.ErrorIs(t, e, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("bounded wait never timed out")
	}
	assert.Equal(t, 0, sem.block.count())
}
