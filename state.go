package rtos

import "sync/atomic"

// TaskState is one state in the task lifecycle of spec.md §4.3.
type TaskState uint32

const (
	// StateReady indicates the task is eligible for dispatch.
	StateReady TaskState = iota
	// StateRunning indicates the task currently holds its core.
	StateRunning
	// StateBlocked indicates the task is parked on a [blockObject] or a delay.
	StateBlocked
	// StateSuspended indicates the task is invisible to the scheduler and
	// to timeout expiry until explicitly resumed.
	StateSuspended
	// StateTerminated is the terminal state; the task is pending reap by
	// the idle task.
	StateTerminated
)

// String implements fmt.Stringer.
func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateBlocked:
		return "Blocked"
	case StateSuspended:
		return "Suspended"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// BlockReason records why a task is in StateBlocked, per spec.md §3.
type BlockReason uint32

const (
	BlockNone BlockReason = iota
	BlockDelay
	BlockQueueFull
	BlockQueueEmpty
	BlockSemaphore
	BlockMutex
	BlockEventGroup
	BlockStreamFull
	BlockStreamEmpty
)

func (r BlockReason) String() string {
	switch r {
	case BlockNone:
		return "None"
	case BlockDelay:
		return "Delay"
	case BlockQueueFull:
		return "QueueFull"
	case BlockQueueEmpty:
		return "QueueEmpty"
	case BlockSemaphore:
		return "Semaphore"
	case BlockMutex:
		return "Mutex"
	case BlockEventGroup:
		return "EventGroup"
	case BlockStreamFull:
		return "StreamFull"
	case BlockStreamEmpty:
		return "StreamEmpty"
	default:
		return "Unknown"
	}
}

// taskStateBox is a lock-free state cell: every state read or write made
// by the scheduler hot path goes through here rather than through a
// mutex-guarded field.
type taskStateBox struct {
	v atomic.Uint32
}

func newTaskStateBox(initial TaskState) *taskStateBox {
	b := &taskStateBox{}
	b.v.Store(uint32(initial))
	return b
}

func (b *taskStateBox) Load() TaskState { return TaskState(b.v.Load()) }

func (b *taskStateBox) Store(s TaskState) { b.v.Store(uint32(s)) }

// CompareAndSwap attempts a single from→to transition.
func (b *taskStateBox) CompareAndSwap(from, to TaskState) bool {
	return b.v.CompareAndSwap(uint32(from), uint32(to))
}

// TransitionAny tries each candidate source state in turn, succeeding on
// the first that matches the current value.
func (b *taskStateBox) TransitionAny(validFrom []TaskState, to TaskState) bool {
	for _, from := range validFrom {
		if b.v.CompareAndSwap(uint32(from), uint32(to)) {
			return true
		}
	}
	return false
}
