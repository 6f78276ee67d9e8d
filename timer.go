// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// tickAfterOrEqual reports whether tick a is at or past tick b, correctly
// handling wraparound of the 32-bit monotonic tick counter via signed
// difference, per spec.md §4.5's overflow rule.
func tickAfterOrEqual(a, b uint32) bool {
	return int32(a-b) >= 0
}

// TimerCallback is invoked when a [Timer] expires, outside of any
// critical section so it may safely call back into kernel primitives.
type TimerCallback func(*Timer)

// Timer is a one-shot or periodic software timer, per spec.md §4.6.
// Timers hang off the kernel's singly linked timer list; list mutation
// happens only inside the critical section, callback dispatch does not.
type Timer struct {
	Name       string
	periodTick uint32
	expiryTick uint32
	autoReload bool
	running    bool
	callback   TimerCallback
	param      any

	next *Timer
}

// newTimer constructs a Timer. periodTicks must be positive.
func newTimer(name string, periodTicks uint32, autoReload bool, cb TimerCallback, param any) *Timer {
	return &Timer{
		Name:       name,
		periodTick: periodTicks,
		autoReload: autoReload,
		callback:   cb,
		param:      param,
	}
}

// IsRunning reports whether the timer is currently armed.
func (t *Timer) IsRunning() bool { return t.running }

// timerList is the kernel's singly linked list of armed and disarmed
// timers, per spec.md §3's Timer data model.
type timerList struct {
	head *Timer
}

func (l *timerList) add(t *Timer) {
	t.next = l.head
	l.head = t
}

func (l *timerList) remove(t *Timer) {
	if l.head == t {
		l.head = t.next
		t.next = nil
		return
	}
	for cur := l.head; cur != nil; cur = cur.next {
		if cur.next == t {
			cur.next = t.next
			t.next = nil
			return
		}
	}
}

// start (re)arms t to expire at currentTick+period.
func (l *timerList) start(t *Timer, currentTick uint32) {
	t.expiryTick = currentTick + t.periodTick
	t.running = true
}

// stop disarms t; it remains on the list so it can be started again.
func (l *timerList) stop(t *Timer) {
	t.running = false
}

// collectExpired gathers up to max running timers whose expiryTick has
// passed currentTick, rearming auto-reload timers in place and disarming
// one-shot timers. Remaining expired timers beyond max are left running,
// to be collected on the next tick, per spec.md §4.6's bounded-ISR-work
// rule.
func (l *timerList) collectExpired(currentTick uint32, max int) []*Timer {
	var expired []*Timer
	for cur := l.head; cur != nil && len(expired) < max; cur = cur.next {
		if !cur.running {
			continue
		}
		if !tickAfterOrEqual(currentTick, cur.expiryTick) {
			continue
		}
		expired = append(expired, cur)
		if cur.autoReload {
			cur.expiryTick = currentTick + cur.periodTick
		} else {
			cur.running = false
		}
	}
	return expired
}
