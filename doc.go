// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package rtos implements the kernel proper of Pico-RTOS: a small
// preemptive real-time kernel originally targeting a dual-core Cortex-M0+
// class microcontroller, rendered here as a host-side Go simulator and
// reference kernel.
//
// # Architecture
//
// A [Kernel] owns the task graph, the per-core ready queues, the timer
// list, and the tick counter. Every blocking primitive ([Mutex],
// [Semaphore], [Queue], [EventGroup], [StreamBuffer]) is built on exactly
// one shared wait-set abstraction, the internal blockObject type;
// primitives differ only in the predicate they evaluate before blocking and
// the disposition they hand back on wake.
//
// Control flow mirrors the original embedded design: an external periodic
// alarm invokes [Kernel.Tick] inside a critical section. Tick advances the
// monotonic tick counter, wakes delay-expired tasks, expires timers
// (dispatching their callbacks outside the critical section), and asks the
// scheduler to pick the next task. Any call that can block enters the
// critical section, mutates the block/ready graph, leaves the critical
// section, and requests a context switch.
//
// # Context switch fidelity
//
// A hosted Go process cannot interrupt arbitrary user code mid-instruction
// the way a Cortex-M0+'s PendSV exception can. Pico-RTOS-Go gives every
// task its own goroutine (Go's analogue of "its own stack") and preempts
// at the same suspension points the original design already enumerates:
// [Task.Delay], [Task.Yield], any blocking primitive call, and tick
// boundaries. A task's goroutine only executes while the scheduler has
// named it the running task on its core; otherwise it is parked on a
// one-slot resume channel, which is the Go-native equivalent of the
// PendSV-driven register save/restore described by the original contract.
//
// # Platform contract
//
// [PlatformOps] names the hardware collaborators the kernel depends on:
// interrupt masking, PendSV-equivalent triggering, per-core id, and a
// monotonic microsecond clock. [SimPlatform] is the default, deterministic,
// in-process implementation used by tests and examples. [NativePlatform]
// (linux-only) backs the same contract with a real eventfd and
// CLOCK_MONOTONIC, for callers who want the simulator's scheduling logic
// running against genuine OS timing instead.
//
// # Thread safety
//
// Every exported method that mutates kernel state acquires the kernel's
// critical section. There is one such section per [Kernel], shared by both
// cores when SMP is enabled; there are no separate per-core sections. No
// kernel-held lock is ever retained across a suspension point.
package rtos
