// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// EnterISR marks the calling core as having entered interrupt context,
// per spec.md §5's ISR rules. Nestable: context switches requested while
// nested are deferred until the outermost ExitISR.
func (k *Kernel) EnterISR() {
	k.isrNesting.Add(1)
}

// ExitISR leaves interrupt context. On the outermost exit it performs any
// context switch that was requested while masked, by redispatching every
// core.
func (k *Kernel) ExitISR() {
	if k.isrNesting.Add(-1) == 0 {
		tok := k.cs.enter()
		for core := 0; core < numCores(k.cfg); core++ {
			k.dispatch(core)
		}
		k.cs.exit(tok)
	}
}

// InISR reports whether the calling core is currently inside EnterISR/
// ExitISR bounds. Primitives use it to reject blocking calls, per
// spec.md §5: "Blocking forms assert not-in-ISR."
func (k *Kernel) InISR() bool {
	return k.isrNesting.Load() > 0
}

// assertNotISR returns [ErrISRContextViolation] if a call that would
// actually block (bounded or infinite wait) is made from ISR context.
// Immediate (timeoutMs == 0, forever == false) calls are always allowed,
// since they never suspend the caller.
func (k *Kernel) assertNotISR(timeoutMs uint32, forever bool) error {
	if (timeoutMs != 0 || forever) && k.InISR() {
		return ErrISRContextViolation
	}
	return nil
}
