package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSMP_RebalanceMigratesAnyAffinityTaskOffBusierCore builds a deliberate
// load imbalance (several pinned busy tasks on one core, none on the other)
// and confirms an Any-affinity task eventually migrates to the idle core.
func TestSMP_RebalanceMigratesAnyAffinityTaskOffBusierCore(t *testing.T) {
	k := NewKernel(WithMultiCore(true), WithMaxTasks(16))
	stop := make(chan struct{})
	defer close(stop)

	spin := func(self *Task) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			self.Yield()
			time.Sleep(time.Millisecond)
		}
	}

	// The first Any-affinity task is placed on core 1, so the busy tasks
	// are pinned there to make it the overloaded core.
	for i := 0; i < 3; i++ {
		_, err := k.CreateTask("busy1", spin, nil, 256, 5, AffinityCore1)
		require.NoError(t, err)
	}

	mover, err := k.CreateTask("mover", spin, nil, 256, 1, AffinityAny)
	require.NoError(t, err)

	home := mover.AssignedCore()
	other := 1 - home

	assert.Eventually(t, func() bool {
		k.Tick()
		return mover.AssignedCore() == other
	}, 2*time.Second, 5*time.Millisecond, "an Any-affinity task should migrate off the overloaded core")

	stats := k.CoreStats(home)
	assert.GreaterOrEqual(t, stats.MigrationsOut, uint64(1))
	otherStats := k.CoreStats(other)
	assert.GreaterOrEqual(t, otherStats.MigrationsIn, uint64(1))
}

func TestSMP_CoreStatsZeroWhenMultiCoreDisabled(t *testing.T) {
	k := NewKernel()
	assert.Equal(t, CoreStats{}, k.CoreStats(0))
	assert.Equal(t, CoreStats{}, k.CoreStats(1))
}

func TestSMP_PinnedAffinityTaskNeverMigrates(t *testing.T) {
	k := NewKernel(WithMultiCore(true), WithMaxTasks(16))
	stop := make(chan struct{})
	defer close(stop)

	spin := func(self *Task) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			self.Yield()
			time.Sleep(time.Millisecond)
		}
	}

	for i := 0; i < 3; i++ {
		_, err := k.CreateTask("busy0", spin, nil, 256, 5, AffinityCore0)
		require.NoError(t, err)
	}
	pinned, err := k.CreateTask("pinned", spin, nil, 256, 1, AffinityCore0)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		k.Tick()
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, 0, pinned.AssignedCore())
}
