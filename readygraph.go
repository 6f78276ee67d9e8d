// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// readyGraph is the intrusive singly linked list of spec.md §3: every
// task known to one core's scheduler, in insertion order, rotated on
// preemption to implement round-robin among equal priorities. It is
// mutated only while the owning kernel's critical section is held.
type readyGraph struct {
	head, tail *Task
	count      int
}

// pushBack inserts t at the tail of the list.
func (g *readyGraph) pushBack(t *Task) {
	t.next = nil
	if g.tail == nil {
		g.head, g.tail = t, t
	} else {
		g.tail.next = t
		g.tail = t
	}
	g.count++
}

// remove unlinks t from the list. Returns false if t was not present.
func (g *readyGraph) remove(t *Task) bool {
	var prev *Task
	for cur := g.head; cur != nil; cur = cur.next {
		if cur == t {
			if prev == nil {
				g.head = cur.next
			} else {
				prev.next = cur.next
			}
			if g.tail == cur {
				g.tail = prev
			}
			cur.next = nil
			g.count--
			return true
		}
		prev = cur
	}
	return false
}

// rotate moves t (assumed present) to the tail, implementing round-robin
// tiebreak when a task is preempted or yields among equal priorities.
func (g *readyGraph) rotate(t *Task) {
	if g.remove(t) {
		g.pushBack(t)
	}
}

// highestReady scans for the Ready task with the greatest current
// priority, eligible is an additional predicate (used by the SMP
// coordinator to filter by affinity); ties are broken by list order,
// i.e. longest-waiting first.
func (g *readyGraph) highestReady(eligible func(*Task) bool) *Task {
	var best *Task
	for cur := g.head; cur != nil; cur = cur.next {
		if cur.State() != StateReady {
			continue
		}
		if eligible != nil && !eligible(cur) {
			continue
		}
		if best == nil || cur.Priority() > best.Priority() {
			best = cur
		}
	}
	return best
}

// forEach walks the list calling fn for every task; fn must not mutate
// the list's linkage.
func (g *readyGraph) forEach(fn func(*Task)) {
	for cur := g.head; cur != nil; cur = cur.next {
		fn(cur)
	}
}
