// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// CanaryHandler is invoked when [idleTaskFunc]'s stack-guard scan finds a
// corrupted canary. The default, used when no handler is configured,
// records the event to the kernel's [ErrorSink], logs it, and terminates
// the offending task; override with
// [WithCanaryHandler] to halt, reset, or otherwise react.
type CanaryHandler func(k *Kernel, offender *Task)

// defaultCanaryHandler implements the "prints and halts" default of
// spec.md §4.13, rendered here as: terminate the offending task, record
// an [ErrorRecord], and log at error level. A host process halting the
// whole kernel over one task's corruption would take the rest of the
// simulation with it, which the original hardware behavior does not
// require (only the offending task is forced to Terminated).
func defaultCanaryHandler(k *Kernel, offender *Task) {
	k.errSink.record(ErrorRecord{
		Code:     CodeCorruption,
		TaskName: offender.Name,
		Message:  "stack canary corrupted",
	})
	detection := "software scan"
	if k.MPUEnabled() {
		detection = "software scan, MPU region also installed"
	}
	logf(k.logger, LevelError, "canary", offender.Name, nil, "stack canary corrupted (%s), forcing termination", detection)
	k.Delete(offender)
}

// idleTaskFunc is the body of every idle task created by [NewKernel]. It
// runs at priority 0, is always Ready, and is dispatched only when no
// other task on its core is Ready. Each iteration it reaps Terminated
// tasks, periodically scans stack canaries, sleeps the core via
// [PlatformOps.WaitForInterrupt], and yields so any newly-Ready task of
// higher priority is picked up promptly. Per spec.md §4.13.
func idleTaskFunc(t *Task) {
	k := t.k
	core := t.AssignedCore()
	iterations := 0
	for {
		k.reapTerminated(core)

		iterations++
		if iterations%k.cfg.idleCanaryScanInterval == 0 {
			k.scanCanaries()
		}

		k.platform.WaitForInterrupt()
		t.Yield()
	}
}

// reapTerminated drops the byName entry of every Terminated auto-delete
// task assigned to core, so CreateTask can reuse the name. Terminated
// tasks were already unlinked from the ready graph by finishTask/Delete;
// this pass does not remove them from allTasks.
func (k *Kernel) reapTerminated(core int) {
	tok := k.cs.enter()
	defer k.cs.exit(tok)
	for _, task := range k.allTasks {
		if task.AssignedCore() != core || task.State() != StateTerminated {
			continue
		}
		if task.autoDelete {
			delete(k.byName, task.Name)
		}
	}
}

// scanCanaries checks every known task's stack canary, invoking the
// configured [CanaryHandler] for each corrupted one found.
func (k *Kernel) scanCanaries() {
	tok := k.cs.enter()
	var offenders []*Task
	for _, task := range k.allTasks {
		if task.State() == StateTerminated {
			continue
		}
		if !task.checkCanary() {
			offenders = append(offenders, task)
		}
	}
	k.cs.exit(tok)

	handler := k.cfg.canaryHandler
	if handler == nil {
		handler = defaultCanaryHandler
	}
	for _, t := range offenders {
		handler(k, t)
	}
}
