// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// Queue is a bounded FIFO with separate sender and receiver wait sets,
// per spec.md §4.9. Items are stored by value (here, as an opaque `any`
// slot) to match the embedded contract's "copied by value" semantics.
type Queue struct {
	k        *Kernel
	name     string
	storage  []any
	capacity int
	head     int
	tail     int
	count    int
	sendWait *blockObject
	recvWait *blockObject
	deleted  bool
}

// NewQueue constructs a Queue of the given item capacity.
func (k *Kernel) NewQueue(name string, capacity int) *Queue {
	return &Queue{
		k:        k,
		name:     name,
		storage:  make([]any, capacity),
		capacity: capacity,
		sendWait: newBlockObject(name + ".send"),
		recvWait: newBlockObject(name + ".recv"),
	}
}

// Send copies item into the queue, blocking on BlockQueueFull if there
// is no room.
func (q *Queue) Send(t *Task, item any, timeoutMs uint32, forever bool) error {
	k := q.k
	tok := k.cs.enter()

	if q.deleted {
		k.cs.exit(tok)
		return ErrDeleted
	}

	if q.count < q.capacity {
		q.storage[q.tail] = item
		q.tail = (q.tail + 1) % q.capacity
		q.count++
		if waiter := q.recvWait.unblockHighest(); waiter != nil {
			k.ready[waiter.AssignedCore()].rotate(waiter)
			k.dispatch(waiter.AssignedCore())
		}
		k.cs.exit(tok)
		return nil
	}

	if timeoutMs == 0 && !forever {
		k.cs.exit(tok)
		return ErrBufferFull
	}
	if err := k.assertNotISR(timeoutMs, forever); err != nil {
		k.cs.exit(tok)
		return err
	}

	ticks := msToTicks(timeoutMs, k.cfg.tickRateHz)
	switch k.blockSelf(t, q.sendWait, BlockQueueFull, "queue.send."+q.name, tok, ticks, forever) {
	case wakeSatisfied:
		return q.completeSend(t, item)
	case wakeTimedOut:
		return ErrTimeout
	default:
		return ErrDeleted
	}
}

// completeSend performs the actual copy once a blocked sender has been
// granted room by a Receive call. The scheduler only ever dispatches one
// task at a time, so by the time this runs the reserved slot is still
// free: no other producer can have raced it.
func (q *Queue) completeSend(t *Task, item any) error {
	k := q.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)
	q.storage[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	if waiter := q.recvWait.unblockHighest(); waiter != nil {
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
	}
	return nil
}

// Receive pops the oldest item, blocking on BlockQueueEmpty if empty.
func (q *Queue) Receive(t *Task, timeoutMs uint32, forever bool) (any, error) {
	k := q.k
	tok := k.cs.enter()

	if q.count > 0 {
		item := q.storage[q.head]
		q.storage[q.head] = nil
		q.head = (q.head + 1) % q.capacity
		q.count--
		if waiter := q.sendWait.unblockHighest(); waiter != nil {
			k.ready[waiter.AssignedCore()].rotate(waiter)
			k.dispatch(waiter.AssignedCore())
		}
		k.cs.exit(tok)
		return item, nil
	}

	if q.deleted {
		k.cs.exit(tok)
		return nil, ErrDeleted
	}

	if timeoutMs == 0 && !forever {
		k.cs.exit(tok)
		return nil, ErrBufferEmpty
	}
	if err := k.assertNotISR(timeoutMs, forever); err != nil {
		k.cs.exit(tok)
		return nil, err
	}

	ticks := msToTicks(timeoutMs, k.cfg.tickRateHz)
	switch k.blockSelf(t, q.recvWait, BlockQueueEmpty, "queue.recv."+q.name, tok, ticks, forever) {
	case wakeSatisfied:
		return q.completeReceive()
	case wakeTimedOut:
		return nil, ErrTimeout
	default:
		return nil, ErrDeleted
	}
}

func (q *Queue) completeReceive() (any, error) {
	k := q.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)
	if q.count == 0 {
		return nil, ErrBufferEmpty
	}
	item := q.storage[q.head]
	q.storage[q.head] = nil
	q.head = (q.head + 1) % q.capacity
	q.count--
	if waiter := q.sendWait.unblockHighest(); waiter != nil {
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
	}
	return item, nil
}

// Len returns the current item count.
func (q *Queue) Len() int { return q.count }

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int { return q.capacity }

// Delete wakes every sender and receiver with a deleted disposition.
func (q *Queue) Delete() {
	k := q.k
	tok := k.cs.enter()
	q.deleted = true
	woken := append(q.sendWait.unblockAll(wakeDeleted), q.recvWait.unblockAll(wakeDeleted)...)
	for _, w := range woken {
		k.ready[w.AssignedCore()].rotate(w)
	}
	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	k.cs.exit(tok)
}
