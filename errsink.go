// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import (
	"sync"

	"github.com/picoproj/pico-rtos-go/internal/ring"
)

// ErrorRecord is one entry in a [Kernel]'s [ErrorSink]: an asynchronous
// failure the kernel could not return directly to a caller, because it
// happened off any call stack (a timer callback panic, a canary scan
// finding corruption).
type ErrorRecord struct {
	Code     Code
	TaskName string
	Message  string
	Detail   any
	Tick     uint32
}

// ErrorSink retains the most recent bounded number of [ErrorRecord]
// values. It exists because the kernel's diagnostic surfaces (outside
// this module's scope, per spec.md §1) need somewhere to poll for
// failures that had no synchronous caller to report to.
type ErrorSink struct {
	mu  sync.Mutex
	buf *ring.Buffer[ErrorRecord]
}

func newErrorSink(capacity int) *ErrorSink {
	return &ErrorSink{buf: ring.New[ErrorRecord](capacity)}
}

func (s *ErrorSink) record(r ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Push(r)
}

// Records returns an oldest-first snapshot of retained error records.
func (s *ErrorSink) Records() []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Slice()
}

// Len returns the number of records currently retained.
func (s *ErrorSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}
