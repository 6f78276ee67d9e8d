// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// criticalSection is a scoped, nestable acquisition of the platform's
// interrupt mask, per spec.md §4.1. enter/exit pairs must nest properly;
// the token returned by enter must be passed to the matching exit.
//
// No kernel operation that mutates the task or timer graph may run
// outside of one of these sections.
type criticalSection struct {
	platform PlatformOps
}

func newCriticalSection(p PlatformOps) *criticalSection {
	return &criticalSection{platform: p}
}

// enter masks interrupts (or, under [SimPlatform], acquires the
// platform-wide lock) and returns a token identifying this nesting level.
func (cs *criticalSection) enter() uint32 {
	return cs.platform.DisableInterrupts()
}

// exit restores the mask saved by the matching enter call.
func (cs *criticalSection) exit(token uint32) {
	cs.platform.RestoreInterrupts(token)
}

// withCriticalSection runs fn with interrupts masked, a convenience
// wrapper for the common enter/defer-exit pattern used throughout the
// kernel's API surface.
func withCriticalSection[T any](cs *criticalSection, fn func() T) T {
	tok := cs.enter()
	defer cs.exit(tok)
	return fn()
}

func withCriticalSectionVoid(cs *criticalSection, fn func()) {
	tok := cs.enter()
	defer cs.exit(tok)
	fn()
}
