// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// EventGroup holds up to 32 independent event bits and lets tasks block on
// any-of or all-of a mask, per spec.md §4.10. Unlike the other primitives,
// the wait condition is per-waiter (mask, all, clearOnExit) rather than a
// single shared predicate, so SetBits walks the wait list itself instead of
// delegating to blockObject.unblockHighest.
type EventGroup struct {
	k       *Kernel
	name    string
	bits    uint32
	block   *blockObject
	deleted bool
}

// NewEventGroup constructs an EventGroup with all bits initially clear.
func (k *Kernel) NewEventGroup(name string) *EventGroup {
	return &EventGroup{k: k, name: name, block: newBlockObject(name)}
}

// satisfied reports whether the current bits value satisfies a wait for
// mask under the any/all rule.
func satisfied(current, mask uint32, all bool) bool {
	if all {
		return current&mask == mask
	}
	return current&mask != 0
}

// Wait blocks until mask is satisfied (any bit if all is false, every bit
// if all is true), or until timeoutMs elapses. On success it returns the
// snapshot of bits observed at the moment the condition became true; if
// clearOnExit is set, the satisfying bits (the intersection with mask) are
// cleared atomically with the observation.
func (g *EventGroup) Wait(t *Task, mask uint32, all, clearOnExit bool, timeoutMs uint32, forever bool) (uint32, error) {
	k := g.k
	tok := k.cs.enter()

	if g.deleted {
		k.cs.exit(tok)
		return 0, ErrDeleted
	}

	if satisfied(g.bits, mask, all) {
		snapshot := g.bits
		if clearOnExit {
			g.bits &^= mask
		}
		k.cs.exit(tok)
		return snapshot, nil
	}

	if timeoutMs == 0 && !forever {
		k.cs.exit(tok)
		return 0, ErrTimeout
	}
	if err := k.assertNotISR(timeoutMs, forever); err != nil {
		k.cs.exit(tok)
		return 0, err
	}

	t.eventMask = mask
	t.eventAll = all
	t.eventClear = clearOnExit

	ticks := msToTicks(timeoutMs, k.cfg.tickRateHz)
	switch k.blockSelf(t, g.block, BlockEventGroup, "eventgroup."+g.name, tok, ticks, forever) {
	case wakeSatisfied:
		return t.wakeEventBits, nil
	case wakeTimedOut:
		return 0, ErrTimeout
	default:
		return 0, ErrDeleted
	}
}

// SetBits ORs mask into the group's bits, then scans the wait list in
// priority order, waking every task whose condition is now satisfied. A
// waiter with clearOnExit set observes and clears only its own mask's
// intersection with the post-OR bits, which can race a second waiter's
// wider mask if both are satisfied by the same SetBits call; the one
// earlier in priority order wins the clear, matching the embedded
// contract's "first satisfied waiter observes the set bits" rule.
func (g *EventGroup) SetBits(mask uint32) uint32 {
	k := g.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	g.bits |= mask

	var woken []*Task
	remaining := g.block.waiters[:0:0]
	for _, w := range g.block.waiters {
		if satisfied(g.bits, w.eventMask, w.eventAll) {
			snapshot := g.bits
			if w.eventClear {
				g.bits &^= w.eventMask
			}
			clearBlockState(w)
			w.wakeDisp = wakeSatisfied
			w.wakeEventBits = snapshot
			w.state.Store(StateReady)
			woken = append(woken, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	g.block.waiters = remaining

	for _, w := range woken {
		k.ready[w.AssignedCore()].rotate(w)
	}
	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	return g.bits
}

// ClearBits ANDs ^mask into the group's bits. It never wakes a waiter: a
// cleared bit cannot newly satisfy anything.
func (g *EventGroup) ClearBits(mask uint32) uint32 {
	return withCriticalSection(g.k.cs, func() uint32 {
		g.bits &^= mask
		return g.bits
	})
}

// Bits returns the current bit value without blocking.
func (g *EventGroup) Bits() uint32 {
	return withCriticalSection(g.k.cs, func() uint32 { return g.bits })
}

// Delete wakes every waiter with a deleted disposition.
func (g *EventGroup) Delete() {
	k := g.k
	tok := k.cs.enter()
	g.deleted = true
	woken := g.block.unblockAll(wakeDeleted)
	for _, w := range woken {
		k.ready[w.AssignedCore()].rotate(w)
	}
	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	k.cs.exit(tok)
}
