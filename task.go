// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import (
	"fmt"
	"sync/atomic"
)

// Affinity constrains which core a task may run on, for the optional SMP
// coordinator (spec.md §4.12).
type Affinity int32

const (
	AffinityAny Affinity = iota
	AffinityCore0
	AffinityCore1
)

func (a Affinity) String() string {
	switch a {
	case AffinityCore0:
		return "Core0"
	case AffinityCore1:
		return "Core1"
	default:
		return "Any"
	}
}

// TaskFunc is the entry point of a task, analogous to the C signature
// `void task_fn(void *param)`.
type TaskFunc func(t *Task)

// Task is the kernel's unit of execution. Rather than a synthesized
// register frame and a raw stack pointer (spec.md §3's `ContextSwitch`
// contract), a Task here owns a goroutine and a pair of channels the
// scheduler uses as its PendSV-equivalent: resumeCh is signalled exactly
// when the scheduler dispatches this task, and the task parks on it at
// every documented suspension point.
type Task struct {
	Name     string
	fn       TaskFunc
	param    any
	stackLen int // bytes, diagnostic only; canaries are simulated, see checkCanary

	state *taskStateBox

	priority         int32 // current, possibly boosted
	originalPriority int32

	blockReason   BlockReason
	blockingOn    *blockObject
	delayUntil    uint32
	autoDelete    bool
	wakeDisp      wakeDisposition
	wakeEventBits uint32 // EventGroup wake payload

	eventMask  uint32
	eventAll   bool
	eventClear bool

	affinity         Affinity
	assignedCore     int32
	migrationPending atomic.Bool
	coreSwitches     atomic.Uint64

	canaryLow  uint32
	canaryWant uint32

	// local holds the four opaque task-local storage slots, set and read
	// only through SetLocal/Local; the kernel never interprets them.
	local [4]any

	resumeCh chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool

	k *Kernel

	// next links tasks in the intrusive ReadyGraph list (spec.md §3); it is
	// mutated only while the kernel's critical section is held.
	next *Task
}

// wakeDisposition records why a blocked task was most recently woken, so
// the primitive it blocked on can decide what to return.
type wakeDisposition int32

const (
	wakeNone wakeDisposition = iota
	wakeSatisfied
	wakeTimedOut
	wakeDeleted
)

// Priority returns the task's current (possibly boosted) priority.
func (t *Task) Priority() int32 { return atomic.LoadInt32(&t.priority) }

func (t *Task) setPriority(p int32) { atomic.StoreInt32(&t.priority, p) }

// OriginalPriority returns the priority set at creation or by the most
// recent [Task.SetPriority] call, ignoring any mutex-inheritance boost.
func (t *Task) OriginalPriority() int32 { return atomic.LoadInt32(&t.originalPriority) }

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState { return t.state.Load() }

// Affinity returns the task's core affinity.
func (t *Task) Affinity() Affinity { return t.affinity }

// AssignedCore returns the core index (0 or 1) the SMP coordinator has
// placed this task on. Meaningless if multi-core is disabled.
func (t *Task) AssignedCore() int { return int(atomic.LoadInt32(&t.assignedCore)) }

func (t *Task) String() string {
	return fmt.Sprintf("Task(%s, prio=%d, state=%s)", t.Name, t.Priority(), t.State())
}

// checkCanary reports whether the task's stack canary is intact.
func (t *Task) checkCanary() bool {
	return atomic.LoadUint32(&t.canaryLow) == t.canaryWant
}

// corruptCanary is a test/diagnostic hook that deliberately damages the
// canary word, used to exercise the idle task's stack-guard scan.
func (t *Task) corruptCanary() {
	atomic.StoreUint32(&t.canaryLow, ^t.canaryWant)
}

// SetLocal stores v in task-local storage slot i (0-3). Out-of-range i is
// ignored, matching the embedded contract's "no-op on invalid index"
// behavior for this diagnostic convenience rather than a hard API error.
func (t *Task) SetLocal(i int, v any) {
	if i < 0 || i >= len(t.local) {
		return
	}
	tok := t.k.cs.enter()
	t.local[i] = v
	t.k.cs.exit(tok)
}

// Local returns the value last stored in task-local storage slot i (0-3),
// or nil if never set or i is out of range.
func (t *Task) Local(i int) any {
	if i < 0 || i >= len(t.local) {
		return nil
	}
	tok := t.k.cs.enter()
	defer t.k.cs.exit(tok)
	return t.local[i]
}

// park is the suspension point every blocking primitive funnels through:
// it blocks the calling goroutine until the scheduler signals resumeCh,
// which is this kernel's rendering of ContextSwitch.perform_switch.
func (t *Task) park() {
	<-t.resumeCh
}

// wake is called by the scheduler, holding the critical section, to hand
// the CPU to this task. It must never block.
func (t *Task) wake() {
	select {
	case t.resumeCh <- struct{}{}:
	default:
	}
}
