// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// blockObject is the single wait-set abstraction of spec.md §4.4, shared
// by every blocking primitive (Mutex, Semaphore, Queue, EventGroup,
// StreamBuffer). Primitives differ only in the predicate they check
// before calling block, and in what they do with the disposition handed
// back on wake.
//
// All methods assume the caller already holds the owning primitive's
// critical section; none of them acquire one themselves.
type blockObject struct {
	owner string // name of the guarded object, for diagnostics

	waiters []*Task // priority-ordered, highest first; FIFO among equals

	enqueueTotal uint64
	dequeueTotal uint64
	peakDepth    int
}

func newBlockObject(owner string) *blockObject {
	return &blockObject{owner: owner}
}

// block records t as waiting on this object for reason, with an optional
// absolute tick deadline, and inserts it into the priority-ordered wait
// list. The caller must park t on its resume channel after releasing the
// critical section.
func (b *blockObject) block(t *Task, reason BlockReason, deadline uint32, hasDeadline bool) {
	t.state.Store(StateBlocked)
	t.blockReason = reason
	t.blockingOn = b
	t.wakeDisp = wakeNone
	if hasDeadline {
		t.delayUntil = deadline
	} else {
		t.delayUntil = 0
	}

	b.insert(t)
	b.enqueueTotal++
	if len(b.waiters) > b.peakDepth {
		b.peakDepth = len(b.waiters)
	}
}

// insert places t in the waiters slice ordered by descending priority,
// FIFO among equal priorities (append after the last equal-priority run).
func (b *blockObject) insert(t *Task) {
	prio := t.Priority()
	i := len(b.waiters)
	for i > 0 && b.waiters[i-1].Priority() < prio {
		i--
	}
	b.waiters = append(b.waiters, nil)
	copy(b.waiters[i+1:], b.waiters[i:])
	b.waiters[i] = t
}

// clearBlockState resets the bookkeeping a primitive must clear whenever
// a task leaves this wait list by any path (wake, remove, delete).
func clearBlockState(t *Task) {
	t.blockReason = BlockNone
	t.blockingOn = nil
	t.delayUntil = 0
}

// unblockHighest pops the front (highest-priority, longest-waiting)
// waiter, marks it Ready with a satisfied disposition, and returns it.
// Returns nil if the wait list is empty.
func (b *blockObject) unblockHighest() *Task {
	if len(b.waiters) == 0 {
		return nil
	}
	t := b.waiters[0]
	b.waiters = b.waiters[1:]
	b.dequeueTotal++
	clearBlockState(t)
	t.wakeDisp = wakeSatisfied
	t.state.Store(StateReady)
	return t
}

// remove unlinks t from the wait list without waking it with any
// particular disposition; the caller sets t.wakeDisp itself. Used by
// timeout expiry and cancellation paths. Returns false if not present.
func (b *blockObject) remove(t *Task) bool {
	for i, w := range b.waiters {
		if w == t {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			b.dequeueTotal++
			clearBlockState(t)
			return true
		}
	}
	return false
}

// unblockAll wakes every waiter with the given disposition, used by
// delete() per spec.md §4.4(d).
func (b *blockObject) unblockAll(disp wakeDisposition) []*Task {
	woken := make([]*Task, 0, len(b.waiters))
	for _, t := range b.waiters {
		clearBlockState(t)
		t.wakeDisp = disp
		t.state.Store(StateReady)
		woken = append(woken, t)
	}
	b.dequeueTotal += uint64(len(b.waiters))
	b.waiters = nil
	return woken
}

// resort repositions t after its priority has changed (mutex inheritance
// boost or [Task.SetPriority]), preserving its block reason/deadline.
func (b *blockObject) resort(t *Task) {
	reason, deadline := t.blockReason, t.delayUntil
	for i, w := range b.waiters {
		if w == t {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			break
		}
	}
	b.insert(t)
	t.blockReason, t.delayUntil = reason, deadline
}

// count returns the current wait-list depth.
func (b *blockObject) count() int { return len(b.waiters) }

// contains reports whether t is currently on this wait list.
func (b *blockObject) contains(t *Task) bool {
	for _, w := range b.waiters {
		if w == t {
			return true
		}
	}
	return false
}
