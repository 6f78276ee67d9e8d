// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// Delay blocks the calling task for at least ms milliseconds, rounded up
// to whole ticks. A delay of 0 is equivalent to [Task.Yield], per
// spec.md §4.3.
func (t *Task) Delay(ms uint32) {
	if ms == 0 {
		t.Yield()
		return
	}
	k := t.k
	ticks := msToTicks(ms, k.cfg.tickRateHz)

	core := t.AssignedCore()
	tok := k.cs.enter()
	t.state.Store(StateBlocked)
	t.blockReason = BlockDelay
	t.blockingOn = nil
	t.delayUntil = k.tick + ticks
	wasRunning := k.running[core] == t
	if wasRunning {
		k.running[core] = nil
	}
	k.dispatch(core)
	k.cs.exit(tok)

	t.park()
}

func msToTicks(ms uint32, tickRateHz int) uint32 {
	ticks := (uint32(ms)*uint32(tickRateHz) + 999) / 1000
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

// Yield voluntarily surrenders the core to any Ready task of equal or
// higher priority, round-robin among equals. Per spec.md §4.3.
func (t *Task) Yield() {
	t.k.yieldSelf(t)
}

// SetPriority is sugar for [Kernel.SetPriority](t, p).
func (t *Task) SetPriority(p int32) { t.k.SetPriority(t, p) }

// Suspend is sugar for [Kernel.Suspend](t).
func (t *Task) Suspend() { t.k.Suspend(t) }

// Delete is sugar for [Kernel.Delete](t); if a task calls this on itself
// its entry function should return immediately afterward.
func (t *Task) Delete() { t.k.Delete(t) }
