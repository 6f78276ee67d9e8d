// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package rlog adapts github.com/joeycumines/logiface (backed by the
// stumpy JSON writer) to the rtos.Logger interface, so kernel diagnostics
// can be routed through a real structured-logging framework instead of the
// package's built-in no-op/writer loggers.
package rlog

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/picoproj/pico-rtos-go"
)

// Logiface wraps a *logiface.Logger[*stumpy.Event] so it satisfies
// rtos.Logger.
type Logiface struct {
	logger *logiface.Logger[*stumpy.Event]
}

// New constructs a Logiface logger writing JSON lines via stumpy, at the
// given minimum rtos.Level.
func New(min rtos.Level, opts ...stumpy.Option) *Logiface {
	return &Logiface{
		logger: logiface.New[*stumpy.Event](
			logiface.WithLevel[*stumpy.Event](toLogifaceLevel(min)),
			stumpy.WithStumpy(opts...),
		),
	}
}

func toLogifaceLevel(l rtos.Level) logiface.Level {
	switch l {
	case rtos.LevelDebug:
		return logiface.LevelDebug
	case rtos.LevelInfo:
		return logiface.LevelInformational
	case rtos.LevelWarn:
		return logiface.LevelWarning
	case rtos.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// Enabled implements rtos.Logger.
func (x *Logiface) Enabled(l rtos.Level) bool {
	return x.logger.Level() >= toLogifaceLevel(l)
}

// Log implements rtos.Logger.
func (x *Logiface) Log(e rtos.Entry) {
	var b *logiface.Builder[*stumpy.Event]
	switch e.Level {
	case rtos.LevelDebug:
		b = x.logger.Debug()
	case rtos.LevelWarn:
		b = x.logger.Warning()
	case rtos.LevelError:
		b = x.logger.Err()
	default:
		b = x.logger.Info()
	}
	if b == nil {
		return
	}
	if e.Category != "" {
		b = b.Str("category", e.Category)
	}
	if e.TaskName != "" {
		b = b.Str("task", e.TaskName)
	}
	for k, v := range e.Fields {
		b = b.Interface(k, v)
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}
