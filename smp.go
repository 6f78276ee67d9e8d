// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import "sync/atomic"

// CoreStats is a point-in-time snapshot of one core's scheduling load,
// returned by [Kernel.CoreStats].
type CoreStats struct {
	LoadPercent   int
	MigrationsOut uint64
	MigrationsIn  uint64
	Cycles        uint64
}

// smpCoordinator implements the optional two-core scheduling view of
// spec.md §4.12: each core's ReadyGraph is scanned independently by
// [Kernel.dispatch], and this type owns the periodic load-balancing pass
// that decides when a task should move from one core's view to the
// other's.
type smpCoordinator struct {
	k      *Kernel
	stats  [2]CoreStats
	cycles uint64
}

func newSMPCoordinator(k *Kernel) *smpCoordinator {
	return &smpCoordinator{k: k}
}

// rebalance is driven once per [Kernel.Tick]. It first completes any
// migration that was marked pending on a prior pass and has since reached
// a safe point (Ready, not queued on any wait list, not Running), then
// measures per-core load and, if one core is busier, acts on at most one
// Any-affinity task of that core: a Ready one is migrated at once, or,
// failing that, a Running one is marked pending for a later pass.
func (c *smpCoordinator) rebalance() {
	k := c.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	c.cycles++
	c.stats[0].Cycles = c.cycles
	c.stats[1].Cycles = c.cycles

	c.completePendingMigrations()

	loadA, readyA := c.coreLoad(0)
	loadB, readyB := c.coreLoad(1)
	c.stats[0].LoadPercent = loadA
	c.stats[1].LoadPercent = loadB

	var from, to int
	var fromReady []*Task
	switch {
	case loadA > loadB+1:
		from, to, fromReady = 0, 1, readyA
	case loadB > loadA+1:
		from, to, fromReady = 1, 0, readyB
	default:
		return
	}

	if candidate := c.pickMigratable(fromReady, StateReady); candidate != nil {
		c.migrate(candidate, to)
		return
	}
	if candidate := c.pickMigratable(fromReady, StateRunning); candidate != nil {
		// Not a safe point yet; mark it and retry once it reaches Ready.
		candidate.migrationPending.Store(true)
	}
}

// coreLoad reports the percentage of this core's tracked tasks that are
// currently Ready or Running, along with the current Ready list snapshot.
func (c *smpCoordinator) coreLoad(core int) (percent int, ready []*Task) {
	k := c.k
	total, busy := 0, 0
	k.ready[core].forEach(func(t *Task) {
		ready = append(ready, t)
	})
	for _, t := range k.allTasks {
		if t.AssignedCore() != core || t == k.idle[core] {
			continue
		}
		total++
		switch t.State() {
		case StateReady, StateRunning:
			busy++
		}
	}
	if total == 0 {
		return 0, ready
	}
	return busy * 100 / total, ready
}

// pickMigratable returns the first Any-affinity task in ready matching
// state, skipping the idle task and anything with explicit core affinity.
func (c *smpCoordinator) pickMigratable(ready []*Task, state TaskState) *Task {
	for _, t := range ready {
		if t.affinity != AffinityAny || t.State() != state {
			continue
		}
		if t == c.k.idle[0] || t == c.k.idle[1] {
			continue
		}
		return t
	}
	return nil
}

// completePendingMigrations moves every task flagged migrationPending
// that has reached a safe point since it was marked.
func (c *smpCoordinator) completePendingMigrations() {
	k := c.k
	for _, t := range k.allTasks {
		if !t.migrationPending.Load() {
			continue
		}
		if t.State() != StateReady || t.blockingOn != nil {
			continue
		}
		dest := 1 - t.AssignedCore()
		c.migrate(t, dest)
	}
}

// migrate moves t from its current core's ReadyGraph to dest's, updating
// telemetry. Caller holds the critical section and has already verified
// t is at a safe point (Ready, not on any wait list, not Running).
func (c *smpCoordinator) migrate(t *Task, dest int) {
	k := c.k
	src := t.AssignedCore()
	if src == dest {
		t.migrationPending.Store(false)
		return
	}
	k.ready[src].remove(t)
	t.migrationPending.Store(false)
	t.coreSwitches.Add(1)
	atomic.StoreInt32(&t.assignedCore, int32(dest))
	k.ready[dest].pushBack(t)
	c.stats[src].MigrationsOut++
	c.stats[dest].MigrationsIn++
	k.dispatch(src)
	k.dispatch(dest)
	logf(k.logger, LevelDebug, "smp", t.Name, nil, "migrated core %d -> %d", src, dest)
}

// CoreStats returns a snapshot of the given core's scheduling telemetry.
// Meaningless (always the zero value) if multi-core is disabled.
func (k *Kernel) CoreStats(core int) CoreStats {
	if k.smp == nil {
		return CoreStats{}
	}
	tok := k.cs.enter()
	defer k.cs.exit(tok)
	return k.smp.stats[core]
}
