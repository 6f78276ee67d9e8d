// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// Mutex is a recursive lock with single-hop priority inheritance, per
// spec.md §4.7. The owner field is a weak reference in the sense that
// the kernel never blocks the owner's deletion on it; Mutex only reads
// the owner's live priority.
type Mutex struct {
	k       *Kernel
	name    string
	owner   *Task
	lockCnt int
	block   *blockObject
	deleted bool
}

// NewMutex constructs a Mutex owned by k.
func (k *Kernel) NewMutex(name string) *Mutex {
	return &Mutex{k: k, name: name, block: newBlockObject(name)}
}

// Lock acquires the mutex. If timeoutMs is 0 and forever is false, a
// contended lock fails immediately with [ErrTimeout]. Recursive locks by
// the current owner succeed and increment the hold count.
func (m *Mutex) Lock(t *Task, timeoutMs uint32, forever bool) error {
	k := m.k
	tok := k.cs.enter()

	if m.deleted {
		k.cs.exit(tok)
		return ErrDeleted
	}
	if m.owner == nil {
		m.owner = t
		m.lockCnt = 1
		k.cs.exit(tok)
		return nil
	}
	if m.owner == t {
		m.lockCnt++
		k.cs.exit(tok)
		return nil
	}

	if t.Priority() > m.owner.Priority() {
		m.owner.setPriority(t.Priority())
		if m.owner.blockingOn != nil {
			m.owner.blockingOn.resort(m.owner)
		}
		logf(k.logger, LevelDebug, "mutex", m.owner.Name, nil, "%s: boosted to %d by %s", m.name, t.Priority(), t.Name)
	}

	if timeoutMs == 0 && !forever {
		k.cs.exit(tok)
		return ErrTimeout
	}
	if err := k.assertNotISR(timeoutMs, forever); err != nil {
		k.cs.exit(tok)
		return err
	}

	ticks := msToTicks(timeoutMs, k.cfg.tickRateHz)
	switch k.blockSelf(t, m.block, BlockMutex, "mutex."+m.name, tok, ticks, forever) {
	case wakeSatisfied:
		return nil
	case wakeTimedOut:
		return ErrTimeout
	default:
		return ErrDeleted
	}
}

// Unlock releases one level of a recursive lock. Only the owner may
// call it. On the final release, the owner's priority is restored and,
// if a waiter is present, ownership transfers atomically.
func (m *Mutex) Unlock(t *Task) error {
	k := m.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	if m.owner != t {
		return ErrNotOwner
	}
	m.lockCnt--
	if m.lockCnt > 0 {
		return nil
	}

	if t.Priority() != t.OriginalPriority() {
		t.setPriority(t.OriginalPriority())
		if t.State() == StateReady {
			k.dispatch(t.AssignedCore())
		}
	}

	if waiter := m.block.unblockHighest(); waiter != nil {
		m.owner = waiter
		m.lockCnt = 1
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
	} else {
		m.owner = nil
	}
	return nil
}

// Delete wakes every waiter with a deleted disposition; subsequent
// Lock/Unlock calls fail.
func (m *Mutex) Delete() {
	k := m.k
	tok := k.cs.enter()
	m.deleted = true
	woken := m.block.unblockAll(wakeDeleted)
	for _, w := range woken {
		k.ready[w.AssignedCore()].rotate(w)
	}
	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	k.cs.exit(tok)
}

// Owner returns the current owner, or nil if unlocked.
func (m *Mutex) Owner() *Task {
	return m.owner
}

// WaitCount returns the number of tasks currently blocked on m.
func (m *Mutex) WaitCount() int { return m.block.count() }
