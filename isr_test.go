package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISR_NestingTracksEnterExit(t *testing.T) {
	k := NewKernel()
	assert.False(t, k.InISR())
	k.EnterISR()
	k.EnterISR()
	assert.True(t, k.InISR())
	k.ExitISR()
	assert.True(t, k.InISR(), "still one level deep")
	k.ExitISR()
	assert.False(t, k.InISR())
}

// TestISR_BlockingCallsRejectedInISRContext confirms bounded and infinite
// waits on a blocking primitive are refused while the kernel believes it is
// executing inside an ISR, per the embedded contract's ISR-safety rule.
func TestISR_BlockingCallsRejectedInISRContext(t *testing.T) {
	k := NewKernel()
	sem := k.NewSemaphore("s", 0, 1)
	fake := newTestTask("fake", 1)

	k.EnterISR()
	defer k.ExitISR()

	err := sem.Take(fake, 50, false)
	assert.ErrorIs(t, err, ErrISRContextViolation)

	err = sem.Take(fake, 0, true)
	assert.ErrorIs(t, err, ErrISRContextViolation)
}

// TestISR_ImmediateNonBlockingCallsAllowedInISRContext confirms the
// zero-timeout, non-forever form of a blocking primitive (the "give"/
// "non-blocking send" shape) is always ISR-safe, since it can never
// actually suspend the caller.
func TestISR_ImmediateNonBlockingCallsAllowedInISRContext(t *testing.T) {
	k := NewKernel()
	sem := k.NewSemaphore("s", 1, 1)
	fake := newTestTask("fake", 1)

	k.EnterISR()
	defer k.ExitISR()

	err := sem.Take(fake, 0, false)
	assert.NoError(t, err)

	sem.Give() // non-blocking by construction, must never be rejected
	assert.Equal(t, 1, sem.Count())
}

// TestISR_ExitRedispatchesOnlyAtOutermostLevel confirms a higher-priority
// task that becomes Ready during a nested ISR only actually resumes once
// the outermost ExitISR call unwinds, not on every inner exit.
func TestISR_ExitRedispatchesOnlyAtOutermostLevel(t *testing.T) {
	k := NewKernel()
	gate := k.NewSemaphore("gate", 0, 1)
	resumed := make(chan struct{})

	_, err := k.CreateTask("high", func(self *Task) {
		_ = gate.Take(self, 0, true)
		close(resumed)
	}, nil, 256, 9, AffinityAny)
	require.NoError(t, err)

	k.EnterISR()
	k.EnterISR()
	gate.Give()

	select {
	case <-resumed:
		t.Fatal("task must not resume before the outermost ExitISR")
	case <-time.After(20 * time.Millisecond):
	}

	k.ExitISR() // still nested one level deep
	select {
	case <-resumed:
		t.Fatal("task must not resume until isrNesting reaches zero")
	case <-time.After(20 * time.Millisecond):
	}

	k.ExitISR() // outermost exit triggers the redispatch
	select {
	case <-resumed:
	case <-time.After(time.Second):
		t.Fatal("task never resumed after the outermost ExitISR")
	}
}
