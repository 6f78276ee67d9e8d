// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import "time"

// config holds the resolved configuration options recognized by the core,
// per spec.md §6.
type config struct {
	tickRateHz             int
	maxTasks               int
	enableMultiCore        bool
	enableMPU              bool
	enableEventGroups      bool
	enableStreamBuffers    bool
	enableMemoryPools      bool
	zeroCopyThreshold      int
	stackCanary            uint32
	maxTimersPerTick       int
	overwriteOldestStream  bool
	idleCanaryScanInterval int
	logger                 Logger
	platform               PlatformOps
	canaryHandler          CanaryHandler
}

// Option configures a [Kernel] at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithTickRateHz sets the number of scheduler ticks per second. Default 1000.
func WithTickRateHz(hz int) Option {
	return optionFunc(func(c *config) { c.tickRateHz = hz })
}

// WithMaxTasks caps the number of tasks the kernel will accept. Default 32.
func WithMaxTasks(n int) Option {
	return optionFunc(func(c *config) { c.maxTasks = n })
}

// WithMultiCore turns on the SMP coordinator (two per-core schedulers
// sharing one task graph). Default false.
func WithMultiCore(enabled bool) Option {
	return optionFunc(func(c *config) { c.enableMultiCore = enabled })
}

// WithMPU records whether stack-guard MPU regions should be installed.
// Region installation itself is outside this kernel's scope (spec.md §1);
// enabling this only makes [Kernel.MPUEnabled] report true for collaborator
// diagnostic surfaces that do implement it.
func WithMPU(enabled bool) Option {
	return optionFunc(func(c *config) { c.enableMPU = enabled })
}

// WithEventGroups records whether the event-group primitive is included.
// Default true. The setting is stored only: [Kernel.NewEventGroup] does not
// consult it and works either way.
func WithEventGroups(enabled bool) Option {
	return optionFunc(func(c *config) { c.enableEventGroups = enabled })
}

// WithStreamBuffers records whether the stream-buffer primitive is included.
// Default true. The setting is stored only: [Kernel.NewStreamBuffer] does not
// consult it and works either way.
func WithStreamBuffers(enabled bool) Option {
	return optionFunc(func(c *config) { c.enableStreamBuffers = enabled })
}

// WithMemoryPools records whether heap-pool-backed stack allocation is
// included. Default false; pool providers are an external collaborator
// (spec.md §1). The setting is stored only; no kernel code consults it.
func WithMemoryPools(enabled bool) Option {
	return optionFunc(func(c *config) { c.enableMemoryPools = enabled })
}

// WithZeroCopyThreshold records the minimum message size, in bytes, for the
// zero-copy stream path. Default 64. The value is stored only: no
// [StreamBuffer] method reads it, and SendStart/ReceiveStart accept
// messages of any size.
func WithZeroCopyThreshold(n int) Option {
	return optionFunc(func(c *config) { c.zeroCopyThreshold = n })
}

// WithStackCanary overrides the magic word written at the low end of every
// task stack. Default 0xDEADBEEF.
func WithStackCanary(word uint32) Option {
	return optionFunc(func(c *config) { c.stackCanary = word })
}

// WithMaxTimersPerTick caps the number of expired timers whose callbacks are
// dispatched within a single tick. Default 16.
func WithMaxTimersPerTick(n int) Option {
	return optionFunc(func(c *config) { c.maxTimersPerTick = n })
}

// WithStreamOverwriteOldest resolves the spec.md §9 open question on
// overwrite-on-full stream buffers: when enabled, a full send drops the
// oldest whole message (never tears a message mid-frame) to make room.
// Default false (senders block/fail on full, as for every other primitive).
func WithStreamOverwriteOldest(enabled bool) Option {
	return optionFunc(func(c *config) { c.overwriteOldestStream = enabled })
}

// WithLogger installs the structured [Logger] used for kernel diagnostics.
// Default is a no-op logger.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithCanaryHandler overrides the stack-guard corruption handler invoked
// by the idle task's periodic scan. Default logs and terminates the
// offending task.
func WithCanaryHandler(h CanaryHandler) Option {
	return optionFunc(func(c *config) { c.canaryHandler = h })
}

// WithPlatform installs the [PlatformOps] collaborator. Default [SimPlatform].
func WithPlatform(p PlatformOps) Option {
	return optionFunc(func(c *config) {
		if p != nil {
			c.platform = p
		}
	})
}

// resolveConfig applies Option values over the documented defaults.
func resolveConfig(opts []Option) *config {
	c := &config{
		tickRateHz:             1000,
		maxTasks:               32,
		enableEventGroups:      true,
		enableStreamBuffers:    true,
		zeroCopyThreshold:      64,
		stackCanary:            0xDEADBEEF,
		maxTimersPerTick:       16,
		idleCanaryScanInterval: 1000,
		logger:                 NewNoOpLogger(),
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.apply(c)
	}
	if c.platform == nil {
		c.platform = NewSimPlatform(time.Duration(time.Second) / time.Duration(c.tickRateHz))
	}
	return c
}

func (c *config) tickPeriod() time.Duration {
	return time.Second / time.Duration(c.tickRateHz)
}
