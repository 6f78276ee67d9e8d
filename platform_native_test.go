// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNativePlatform_MicrosecondTicksIsMonotonic(t *testing.T) {
	p := NewNativePlatform(time.Millisecond)
	a := p.MicrosecondTicks()
	time.Sleep(2 * time.Millisecond)
	b := p.MicrosecondTicks()
	assert.Greater(t, b, a)
}

func TestNativePlatform_TriggerPendSVWakesWaitForInterrupt(t *testing.T) {
	p := NewNativePlatform(time.Millisecond)
	done := make(chan struct{})
	go func() {
		p.WaitForInterrupt()
		close(done)
	}()

	time.Sleep(time.Millisecond)
	p.TriggerPendSV()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForInterrupt never observed TriggerPendSV")
	}
}

func TestNativePlatform_DisableRestoreInterruptsIsMutuallyExclusive(t *testing.T) {
	p := NewNativePlatform(time.Millisecond)
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		tok := p.DisableInterrupts()
		close(entered)
		<-release
		p.RestoreInterrupts(tok)
	}()

	<-entered
	acquired := make(chan struct{})
	go func() {
		tok := p.DisableInterrupts()
		close(acquired)
		p.RestoreInterrupts(tok)
	}()

	select {
	case <-acquired:
		t.Fatal("second DisableInterrupts must not succeed while the first is held")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second DisableInterrupts never acquired after release")
	}
}
