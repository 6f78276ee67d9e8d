// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package rtos

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// NativePlatform is a [PlatformOps] backed by real OS primitives instead of
// [SimPlatform]'s in-process channels: an eventfd stands in for the PendSV
// pending-switch flag, and CLOCK_MONOTONIC backs [NativePlatform.MicrosecondTicks]
// instead of a process-start-relative [time.Time]. Grounded on the teacher's
// own eventfd-based wake pipe (eventloop/wakeup_linux.go), repurposed here from
// "wake the single event loop goroutine" to "signal the scheduler a PendSV is
// pending".
type NativePlatform struct {
	mu      sync.Mutex
	holder  int64
	wakeFD  int
	coreSeq int64
}

// NewNativePlatform constructs a [NativePlatform]. tickPeriod is informational
// only, matching [NewSimPlatform].
func NewNativePlatform(tickPeriod time.Duration) *NativePlatform {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		// Fall back to a closed fd; WaitForInterrupt degrades to pure
		// polling, which is still correct, only less efficient.
		fd = -1
	}
	return &NativePlatform{wakeFD: fd}
}

// DisableInterrupts acquires the platform-wide critical section lock.
func (p *NativePlatform) DisableInterrupts() uint32 {
	p.mu.Lock()
	return uint32(atomic.AddInt64(&p.holder, 1))
}

// RestoreInterrupts releases the lock acquired by DisableInterrupts.
func (p *NativePlatform) RestoreInterrupts(uint32) {
	atomic.AddInt64(&p.holder, -1)
	p.mu.Unlock()
}

// TriggerPendSV posts to the wake eventfd; concurrent posts coalesce into
// the eventfd's accumulated counter, read (and reset to zero) as a single
// pending notification by WaitForInterrupt.
func (p *NativePlatform) TriggerPendSV() {
	if p.wakeFD < 0 {
		return
	}
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(p.wakeFD, buf[:])
}

// WaitForInterrupt polls the wake eventfd for up to a millisecond, draining
// it if it becomes readable so the next TriggerPendSV is observed fresh.
func (p *NativePlatform) WaitForInterrupt() {
	if p.wakeFD < 0 {
		time.Sleep(time.Millisecond)
		return
	}
	fds := []unix.PollFd{{Fd: int32(p.wakeFD), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 1)
	if err != nil || n <= 0 {
		return
	}
	var buf [8]byte
	_, _ = unix.Read(p.wakeFD, buf[:])
}

// CurrentCoreID returns the simulated core index set by [NativePlatform.setCoreID].
func (p *NativePlatform) CurrentCoreID() int {
	return int(atomic.LoadInt64(&p.coreSeq))
}

func (p *NativePlatform) setCoreID(id int) { atomic.StoreInt64(&p.coreSeq, int64(id)) }

// MicrosecondTicks reads CLOCK_MONOTONIC directly rather than measuring
// elapsed time.Since(processStart), avoiding the wall-clock drift adjustments
// Go's monotonic reading already guards against but a real embedded target's
// free-running counter never has to consider.
func (p *NativePlatform) MicrosecondTicks() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1_000_000 + uint64(ts.Nsec)/1_000
}
