// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

import (
	"context"
	"sync/atomic"
	"time"
)

// Kernel owns the task graph, the per-core ready queues, the timer list,
// and the monotonic tick counter. It is the single entry point for every
// operation described in spec.md §4.
type Kernel struct {
	cfg      *config
	cs       *criticalSection
	platform PlatformOps
	logger   Logger

	tick uint32

	ready   [2]readyGraph
	running [2]*Task
	idle    [2]*Task

	timers timerList

	allTasks []*Task
	byName   map[string]*Task

	errSink *ErrorSink
	metrics *Metrics

	smp *smpCoordinator

	isrNesting  atomic.Int32
	nextTaskSeq atomic.Uint64
}

// NewKernel constructs a Kernel and its priority-zero idle task(s). Call
// [Kernel.RunTicker] or drive [Kernel.Tick] manually (e.g. from tests) to
// start scheduling.
func NewKernel(opts ...Option) *Kernel {
	cfg := resolveConfig(opts)
	k := &Kernel{
		cfg:      cfg,
		platform: cfg.platform,
		logger:   cfg.logger,
		byName:   make(map[string]*Task),
		errSink:  newErrorSink(64),
		metrics:  newMetrics(),
	}
	k.cs = newCriticalSection(k.platform)

	if cfg.enableMultiCore {
		k.smp = newSMPCoordinator(k)
	}

	k.idle[0] = k.mustCreateTask("idle0", idleTaskFunc, nil, 256, 0, AffinityCore0)
	if cfg.enableMultiCore {
		k.idle[1] = k.mustCreateTask("idle1", idleTaskFunc, nil, 256, 0, AffinityCore1)
	}
	return k
}

func numCores(cfg *config) int {
	if cfg.enableMultiCore {
		return 2
	}
	return 1
}

// Logger returns the kernel's configured structured logger.
func (k *Kernel) Logger() Logger { return k.logger }

// Errors returns the kernel's bounded sink of asynchronous error records
// (canary corruption, task and timer callback panics).
func (k *Kernel) Errors() *ErrorSink { return k.errSink }

// Metrics returns the kernel's running metrics snapshot source.
func (k *Kernel) Metrics() *Metrics { return k.metrics }

// MPUEnabled reports whether [WithMPU] was enabled at construction time.
// Region installation itself is outside this kernel's scope; this accessor
// only lets collaborator diagnostic surfaces (e.g. the canary scanner's
// logging) know whether to describe a corruption as MPU-backed.
func (k *Kernel) MPUEnabled() bool { return k.cfg.enableMPU }

// CurrentTick returns the monotonic tick counter.
func (k *Kernel) CurrentTick() uint32 {
	return atomic.LoadUint32((*uint32)(&k.tick))
}

// CreateTask allocates a task, writes its simulated stack canary,
// inserts it Ready at the tail of its core's ReadyGraph, and starts its
// goroutine parked awaiting first dispatch. Per spec.md §4.3.
func (k *Kernel) CreateTask(name string, fn TaskFunc, param any, stackSize int, priority int32, affinity Affinity) (*Task, error) {
	if fn == nil {
		return nil, newError(CodeInvalidPointer, "task %q: nil entry function", name)
	}
	if stackSize < 64 {
		return nil, newError(CodeOutOfMemory, "task %q: stack size %d below architecture minimum", name, stackSize)
	}
	if len(k.allTasks) >= k.cfg.maxTasks {
		return nil, newError(CodeOutOfMemory, "task %q: kernel task limit (%d) reached", name, k.cfg.maxTasks)
	}
	return k.mustCreateTask(name, fn, param, stackSize, priority, affinity), nil
}

// mustCreateTask is the unchecked constructor used for idle tasks and by
// CreateTask after validation.
func (k *Kernel) mustCreateTask(name string, fn TaskFunc, param any, stackSize int, priority int32, affinity Affinity) *Task {
	t := &Task{
		Name:             name,
		fn:               fn,
		param:            param,
		stackLen:         stackSize,
		state:            newTaskStateBox(StateReady),
		priority:         priority,
		originalPriority: priority,
		affinity:         affinity,
		canaryWant:       k.cfg.stackCanary,
		canaryLow:        k.cfg.stackCanary,
		resumeCh:         make(chan struct{}, 1),
		doneCh:           make(chan struct{}),
		k:                k,
	}

	tok := k.cs.enter()
	core := k.assignCore(t)
	atomic.StoreInt32(&t.assignedCore, int32(core))
	k.allTasks = append(k.allTasks, t)
	k.byName[name] = t
	k.ready[core].pushBack(t)
	k.dispatch(core)
	k.cs.exit(tok)

	go k.runTask(t)

	logf(k.logger, LevelDebug, "task", name, nil, "created priority=%d core=%d", priority, core)
	return t
}

// assignCore picks the core a new task lands on, honoring explicit
// affinity and otherwise round-robin balancing across enabled cores.
func (k *Kernel) assignCore(t *Task) int {
	if !k.cfg.enableMultiCore {
		return 0
	}
	switch t.affinity {
	case AffinityCore0:
		return 0
	case AffinityCore1:
		return 1
	default:
		return int(k.nextTaskSeq.Add(1) % 2)
	}
}

// runTask is the goroutine body wrapping every task's entry function.
func (k *Kernel) runTask(t *Task) {
	t.park()
	if t.started.CompareAndSwap(false, true) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					k.errSink.record(ErrorRecord{Code: CodeCorruption, TaskName: t.Name, Message: "task panicked", Detail: r})
					logf(k.logger, LevelError, "task", t.Name, nil, "panic: %v", r)
				}
			}()
			t.fn(t)
		}()
	}
	k.finishTask(t)
}

// finishTask transitions t to Terminated on natural return, per
// spec.md §4.3's "any→Terminated on delete or function return".
func (k *Kernel) finishTask(t *Task) {
	core := t.AssignedCore()
	tok := k.cs.enter()
	t.state.Store(StateTerminated)
	k.ready[core].remove(t)
	if k.running[core] == t {
		k.running[core] = nil
	}
	k.dispatch(core)
	close(t.doneCh)
	k.cs.exit(tok)
}

// dispatch picks the highest-priority Ready task eligible for core and,
// if it differs from the currently designated running task, signals it
// and updates bookkeeping. Must be called with the critical section
// held. This is the kernel's sole context-switch decision point; see
// doc.go's "Context switch fidelity" section for why the signalled task
// only actually regains the CPU at its next suspension point if it was
// already running host code.
func (k *Kernel) dispatch(core int) {
	if k.isrNesting.Load() > 0 {
		// Context switches defer to the outermost ExitISR, which sweeps
		// every core once nesting reaches zero.
		return
	}
	start := time.Now()
	var eligible func(*Task) bool
	if k.cfg.enableMultiCore {
		eligible = func(t *Task) bool { return t.AssignedCore() == core }
	}
	next := k.ready[core].highestReady(eligible)
	if next == nil {
		return
	}
	prev := k.running[core]
	if prev == next {
		return
	}
	if prev != nil && prev.State() == StateRunning {
		prev.state.CompareAndSwap(StateRunning, StateReady)
	}
	next.state.Store(StateRunning)
	k.running[core] = next
	next.wake()
	k.metrics.Dispatch.Record(time.Since(start))
	k.metrics.recordDispatch()
}

// yieldSelf is shared by Task.Yield and every blocking-primitive entry
// point: it hands the CPU to the scheduler's next pick and parks the
// calling task if someone else was dispatched.
func (k *Kernel) yieldSelf(t *Task) {
	core := t.AssignedCore()
	tok := k.cs.enter()
	k.ready[core].rotate(t)
	k.dispatch(core)
	stillRunning := k.running[core] == t
	k.cs.exit(tok)
	if !stillRunning {
		t.park()
	}
}

// blockSelf is the common tail shared by every blocking primitive's
// contended path: it records t as waiting on obj under reason, updates
// the named wait-depth metric, dispatches a replacement for t's core,
// releases the critical section, and parks t. Returns the disposition
// recorded by whoever later woke t.
//
// The caller must already hold the critical section via tok, established
// continuously since it last observed the wait condition true — ownership
// of tok passes to blockSelf, which releases it. Splitting the release
// from the block-insert (e.g. exiting tok, then having this function
// reacquire its own) would open a window where a concurrent Give/Unlock/
// SetBits could run, find the wait list still empty, and signal nobody,
// losing the wakeup the blocking call depends on.
func (k *Kernel) blockSelf(t *Task, obj *blockObject, reason BlockReason, metricCategory string, tok uint32, timeoutTicks uint32, forever bool) wakeDisposition {
	if forever {
		obj.block(t, reason, 0, false)
	} else {
		obj.block(t, reason, k.tick+timeoutTicks, true)
	}
	k.metrics.Wait.Update(metricCategory, obj.count())
	k.dispatch(t.AssignedCore())
	k.cs.exit(tok)

	t.park()
	return t.wakeDisp
}

// Tick advances the monotonic tick counter, wakes delay-expired tasks,
// expires timers (dispatching callbacks outside the critical section),
// and redispatches every core. Per spec.md §4.5.
func (k *Kernel) Tick() {
	tok := k.cs.enter()
	k.tick++
	now := k.tick

	for _, t := range k.allTasks {
		if t.State() != StateBlocked {
			continue
		}
		switch {
		case t.blockReason == BlockDelay && t.blockingOn == nil:
			if tickAfterOrEqual(now, t.delayUntil) {
				clearBlockState(t)
				t.wakeDisp = wakeSatisfied
				t.state.Store(StateReady)
				k.ready[t.AssignedCore()].rotate(t)
			}
		case t.blockingOn != nil && t.delayUntil != 0:
			if tickAfterOrEqual(now, t.delayUntil) {
				t.blockingOn.remove(t)
				t.wakeDisp = wakeTimedOut
				t.state.Store(StateReady)
				k.ready[t.AssignedCore()].rotate(t)
			}
		}
	}

	expired := k.timers.collectExpired(now, k.cfg.maxTimersPerTick)

	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	k.cs.exit(tok)

	for _, timer := range expired {
		k.fireTimer(timer)
	}

	if k.smp != nil {
		k.smp.rebalance()
	}
}

// RunTicker drives [Kernel.Tick] at the configured tick rate until ctx is
// cancelled, standing in for the external periodic alarm spec.md §2
// assumes exists outside the kernel proper. Tests that want deterministic
// control over scheduling decisions should call [Kernel.Tick] directly
// instead.
func (k *Kernel) RunTicker(ctx context.Context) {
	ticker := time.NewTicker(k.cfg.tickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Tick()
		}
	}
}

// fireTimer invokes a timer's callback outside the critical section, per
// spec.md §4.6 (callbacks must never deadlock on a kernel primitive).
func (k *Kernel) fireTimer(t *Timer) {
	defer func() {
		if r := recover(); r != nil {
			k.errSink.record(ErrorRecord{Code: CodeCorruption, Message: "timer callback panicked", Detail: r})
			logf(k.logger, LevelError, "timer", "", nil, "%s panicked: %v", t.Name, r)
		}
	}()
	if t.callback != nil {
		t.callback(t)
	}
}

// StartTimer registers and arms a software timer. See spec.md §4.6.
func (k *Kernel) StartTimer(name string, periodTicks uint32, autoReload bool, cb TimerCallback, param any) *Timer {
	t := newTimer(name, periodTicks, autoReload, cb, param)
	tok := k.cs.enter()
	k.timers.add(t)
	k.timers.start(t, k.tick)
	k.cs.exit(tok)
	return t
}

// StopTimer disarms t without removing it from the kernel's timer list.
func (k *Kernel) StopTimer(t *Timer) {
	tok := k.cs.enter()
	k.timers.stop(t)
	k.cs.exit(tok)
}

// DeleteTimer disarms and unlinks t.
func (k *Kernel) DeleteTimer(t *Timer) {
	tok := k.cs.enter()
	k.timers.stop(t)
	k.timers.remove(t)
	k.cs.exit(tok)
}

// Suspend removes t from scheduling consideration; Suspended tasks are
// invisible to the scheduler and to timeout expiry, per spec.md §4.3.
func (k *Kernel) Suspend(t *Task) {
	tok := k.cs.enter()
	if t.state.TransitionAny([]TaskState{StateReady, StateRunning}, StateSuspended) {
		core := t.AssignedCore()
		if k.running[core] == t {
			k.running[core] = nil
		}
		k.dispatch(core)
	}
	k.cs.exit(tok)
}

// Resume makes a Suspended task Ready again; a no-op on any other state.
func (k *Kernel) Resume(t *Task) {
	tok := k.cs.enter()
	if t.State() == StateSuspended {
		t.state.Store(StateReady)
		k.ready[t.AssignedCore()].rotate(t)
		k.dispatch(t.AssignedCore())
	}
	k.cs.exit(tok)
}

// Delete terminates t: it is forced to Terminated immediately and removed
// from its core's ReadyGraph and from any wait list it occupies. If t is
// the caller, its goroutine keeps executing until its entry function
// returns, then unwinds through finishTask.
func (k *Kernel) Delete(t *Task) {
	tok := k.cs.enter()
	if t.blockingOn != nil {
		t.blockingOn.remove(t)
		t.wakeDisp = wakeDeleted
	}
	core := t.AssignedCore()
	k.ready[core].remove(t)
	wasRunning := k.running[core] == t
	t.state.Store(StateTerminated)
	if wasRunning {
		k.running[core] = nil
	}
	k.dispatch(core)
	k.cs.exit(tok)
}

// SetPriority updates a task's base priority, propagating the change to
// its current priority unless it is presently boosted by mutex
// inheritance, and re-sorting any wait list it occupies. Per
// spec.md §4.3.
func (k *Kernel) SetPriority(t *Task, p int32) {
	tok := k.cs.enter()
	inherited := t.Priority() > t.OriginalPriority()
	atomic.StoreInt32(&t.originalPriority, p)
	if !inherited {
		t.setPriority(p)
		if t.blockingOn != nil {
			t.blockingOn.resort(t)
		}
		if t.State() == StateReady {
			k.dispatch(t.AssignedCore())
		}
	}
	k.cs.exit(tok)
}

// TaskByName looks up a task created with [Kernel.CreateTask], mainly
// for diagnostics and tests.
func (k *Kernel) TaskByName(name string) (*Task, bool) {
	t, ok := k.byName[name]
	return t, ok
}

// Tasks returns a snapshot slice of every task known to the kernel,
// including its idle task(s).
func (k *Kernel) Tasks() []*Task {
	out := make([]*Task, len(k.allTasks))
	copy(out, k.allTasks)
	return out
}
