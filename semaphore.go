// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// Semaphore is a counting semaphore built on [blockObject], per spec.md §4.8.
type Semaphore struct {
	k        *Kernel
	name     string
	count    int
	maxCount int
	block    *blockObject
}

// NewSemaphore constructs a Semaphore with the given initial and maximum
// counts.
func (k *Kernel) NewSemaphore(name string, initial, max int) *Semaphore {
	return &Semaphore{k: k, name: name, count: initial, maxCount: max, block: newBlockObject(name)}
}

// Take decrements the semaphore, blocking if it is at zero.
func (s *Semaphore) Take(t *Task, timeoutMs uint32, forever bool) error {
	k := s.k
	tok := k.cs.enter()

	if s.count > 0 {
		s.count--
		k.cs.exit(tok)
		return nil
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
	switch k.blockSelf(t, s.block, BlockSemaphore, "semaphore."+s.name, tok, ticks, forever) {
	case wakeSatisfied:
		return nil
	case wakeTimedOut:
		return ErrTimeout
	default:
		return ErrDeleted
	}
}

// Give releases one token: wakes the highest-priority waiter if any
// (count is left unchanged, the token transfers directly), otherwise
// increments count, saturating at maxCount.
func (s *Semaphore) Give() {
	k := s.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	if waiter := s.block.unblockHighest(); waiter != nil {
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
		return
	}
	if s.count < s.maxCount {
		s.count++
	}
}

// Count returns the current available count.
func (s *Semaphore) Count() int { return s.count }

// Delete wakes every waiter with a deleted disposition.
func (s *Semaphore) Delete() {
	k := s.k
	tok := k.cs.enter()
	woken := s.block.unblockAll(wakeDeleted)
	for _, w := range woken {
		k.ready[w.AssignedCore()].rotate(w)
	}
	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	k.cs.exit(tok)
}
