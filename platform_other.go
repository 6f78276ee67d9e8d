// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !linux

package rtos

import "time"

// NewNativePlatform constructs the best available real-OS [PlatformOps] for
// the current platform. Non-Linux builds have no eventfd equivalent wired
// in yet (the teacher's own darwin wakeup path uses a self-pipe rather than
// an eventfd; see eventloop/wakeup_darwin.go), so NewNativePlatform here
// returns a [SimPlatform]; no NativePlatform type exists on these builds.
func NewNativePlatform(tickPeriod time.Duration) PlatformOps {
	return NewSimPlatform(tickPeriod)
}
