// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import (
	"sync"
	"sync/atomic"
	"time"
)

// PlatformOps names the hardware collaborators the kernel depends on but
// does not implement itself: interrupt masking, the PendSV-equivalent
// switch trigger, per-core identity, and a monotonic clock. See spec.md §1.
//
// A host process has no PRIMASK register and no PendSV exception, so
// [SimPlatform] renders this contract with a mutex standing in for
// interrupt masking and a buffered channel standing in for the pending
// context-switch flag.
type PlatformOps interface {
	// DisableInterrupts masks interrupts and returns an opaque token that
	// RestoreInterrupts uses to undo exactly this masking level.
	DisableInterrupts() (token uint32)
	// RestoreInterrupts restores the interrupt mask saved in token.
	RestoreInterrupts(token uint32)
	// TriggerPendSV requests that a context switch happen at the next
	// safe point (immediately if not already inside an ISR).
	TriggerPendSV()
	// WaitForInterrupt parks the calling core until the next tick or
	// TriggerPendSV, used by the idle task.
	WaitForInterrupt()
	// CurrentCoreID returns 0 or 1.
	CurrentCoreID() int
	// MicrosecondTicks returns a monotonically increasing microsecond
	// counter, used only for diagnostics (never for scheduling decisions,
	// which are tick-counter based).
	MicrosecondTicks() uint64
}

// SimPlatform is the deterministic, in-process [PlatformOps] used by the
// default configuration, examples, and tests. Interrupt masking is
// rendered as a non-reentrant mutex (a second DisableInterrupts on the
// same goroutine before RestoreInterrupts deadlocks); the PendSV trigger
// is a one-slot signal that WaitForInterrupt drains.
type SimPlatform struct {
	mu       sync.Mutex
	holder   int64 // goroutine-ish reentrancy counter; 0 = unlocked
	start    time.Time
	pendSV   chan struct{}
	tickDone chan struct{}
	coreSeq  int64
}

// NewSimPlatform constructs a SimPlatform. tickPeriod is informational
// only here; the scheduler's own ticker owns real timing.
func NewSimPlatform(tickPeriod time.Duration) *SimPlatform {
	return &SimPlatform{
		start:    time.Now(),
		pendSV:   make(chan struct{}, 1),
		tickDone: make(chan struct{}, 1),
	}
}

// DisableInterrupts acquires the platform-wide critical section lock.
// The returned token is a nesting depth; see criticalSection, which is
// the only intended caller.
func (p *SimPlatform) DisableInterrupts() uint32 {
	p.mu.Lock()
	depth := atomic.AddInt64(&p.holder, 1)
	return uint32(depth)
}

// RestoreInterrupts releases the lock acquired by DisableInterrupts.
func (p *SimPlatform) RestoreInterrupts(uint32) {
	atomic.AddInt64(&p.holder, -1)
	p.mu.Unlock()
}

// TriggerPendSV posts a pending context-switch signal, coalescing with
// any already-pending request.
func (p *SimPlatform) TriggerPendSV() {
	select {
	case p.pendSV <- struct{}{}:
	default:
	}
}

// WaitForInterrupt blocks until a context switch is pending, consuming
// the pending signal, or for at most one millisecond, standing in for the
// next tick.
func (p *SimPlatform) WaitForInterrupt() {
	select {
	case <-p.pendSV:
	case <-time.After(time.Millisecond):
	}
}

// CurrentCoreID returns the simulated core index last set by setCoreID,
// shared by every caller; it is 0 unless setCoreID has been called.
func (p *SimPlatform) CurrentCoreID() int {
	return int(atomic.LoadInt64(&p.coreSeq))
}

// setCoreID pins the simulated core index that CurrentCoreID reports.
func (p *SimPlatform) setCoreID(id int) { atomic.StoreInt64(&p.coreSeq, int64(id)) }

// MicrosecondTicks returns elapsed microseconds since the platform was
// constructed.
func (p *SimPlatform) MicrosecondTicks() uint64 {
	return uint64(time.Since(p.start).Microseconds())
}
