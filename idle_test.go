package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScanCanaries_CorruptedStackTerminatesOffender drives the default
// canary handler: a task whose guard word has been clobbered is forced to
// Terminated and recorded in the error sink, without affecting others.
func TestScanCanaries_CorruptedStackTerminatesOffender(t *testing.T) {
	k := NewKernel()
	gate := k.NewSemaphore("gate", 0, 1)

	victim, err := k.CreateTask("victim", func(self *Task) {
		_ = gate.Take(self, 0, true)
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	assert.True(t, victim.checkCanary())
	victim.corruptCanary()

	k.scanCanaries()

	assert.Eventually(t, func() bool {
		return victim.State() == StateTerminated
	}, time.Second, time.Millisecond)

	records := k.Errors().Records()
	require.NotEmpty(t, records)
	found := false
	for _, r := range records {
		if r.TaskName == "victim" && r.Code == CodeCorruption {
			found = true
		}
	}
	assert.True(t, found, "corruption must be recorded against the offending task")
}

func TestScanCanaries_CustomHandlerOverridesDefault(t *testing.T) {
	var handled []string
	k := NewKernel(WithCanaryHandler(func(k *Kernel, offender *Task) {
		handled = append(handled, offender.Name)
	}))

	gate := k.NewSemaphore("gate", 0, 1)
	victim, err := k.CreateTask("victim", func(self *Task) {
		_ = gate.Take(self, 0, true)
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	victim.corruptCanary()
	k.scanCanaries()

	assert.Equal(t, []string{"victim"}, handled)
	assert.Equal(t, StateBlocked, victim.State(), "a custom handler that doesn't delete leaves the task as-is")
}

func TestScanCanaries_IntactStacksAreLeftAlone(t *testing.T) {
	var handled []string
	k := NewKernel(WithCanaryHandler(func(k *Kernel, offender *Task) {
		handled = append(handled, offender.Name)
	}))

	gate := k.NewSemaphore("gate", 0, 1)
	_, err := k.CreateTask("healthy", func(self *Task) {
		_ = gate.Take(self, 0, true)
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	k.scanCanaries()
	assert.Empty(t, handled)
}
