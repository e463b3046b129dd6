package engine

import (
	"context"
	"fmt"

	"github.com/minisource/jobengine/internal/logging"
	"github.com/minisource/jobengine/internal/models"
	"github.com/minisource/jobengine/internal/store"
)

// dispatcher turns a FireResult into a running JobExecutionContext,
// orchestrating listeners, the worker pool and the store's completion
// callback.
type dispatcher struct {
	store     store.JobStore
	factory   JobFactory
	listeners *listenerRegistry
	tracker   *executionTracker
	pool      *WorkerPool
	log       *logging.Logger
}

func newDispatcher(st store.JobStore, factory JobFactory, listeners *listenerRegistry, tracker *executionTracker, pool *WorkerPool, log *logging.Logger) *dispatcher {
	return &dispatcher{store: st, factory: factory, listeners: listeners, tracker: tracker, pool: pool, log: log}
}

// Dispatch runs the full firing sequence for one fired trigger: build the
// execution context, resolve the job instance, consult trigger listeners
// (which may veto), notify job listeners, submit to the pool. It does not
// block on job completion: everything from the job body onward happens
// inside the worker goroutine via runAndComplete.
func (d *dispatcher) Dispatch(ctx context.Context, fr models.FireResult, trig store.Trigger) {
	jec := models.NewJobExecutionContext(fr.Job, fr.Trigger.Name, fr.Trigger.Group, fr.Scheduled, fr.Actual)
	jec.RecoveringTrigger = fr.Recovering

	job, err := d.factory.NewJob(fr.Job)
	if err != nil {
		d.listeners.notifySchedulerError("resolve job instance", err)
		_ = d.store.TriggeredJobComplete(ctx, trig, fr.Job, models.SetTriggerError)
		return
	}
	jec.SetJobInstance(job)

	ec := &execContext{jec: jec, trigger: fr.Trigger, calendar: fr.Calendar, job: job}

	if veto := d.notifyTriggerListenersFired(jec); veto {
		for _, l := range d.listeners.jobListenerSnapshot() {
			l.JobExecutionVetoed(jec)
		}
		instruction := models.NoInstruction
		if !trig.MayFireAgain() {
			instruction = models.SetTriggerComplete
		}
		if err := d.store.TriggeredJobComplete(ctx, trig, fr.Job, instruction); err != nil {
			d.listeners.notifySchedulerError("triggeredJobComplete after veto", err)
		}
		return
	}

	for _, l := range d.listeners.jobListenerSnapshot() {
		l.JobToBeExecuted(jec)
	}
	d.tracker.track(ec)

	submitted := d.pool.Submit(firedJob{ctx: ec, run: func(ec *execContext) { d.runAndComplete(ec, trig) }})
	if !submitted {
		d.tracker.untrack(jec.FireInstanceID)
		d.listeners.notifySchedulerError("submit execution", fmt.Errorf("worker pool rejected job %s/%s", fr.Job.Group, fr.Job.Name))
		_ = d.store.TriggeredJobComplete(ctx, trig, fr.Job, models.SetTriggerError)
	}
}

// runAndComplete executes the job body and the completion notifications on
// a pool worker goroutine. The job runs under its own context rather than
// the loop's: halting the loop must not cancel executions mid-flight;
// shutdown drains them, interrupting only through the Interruptible
// contract.
func (d *dispatcher) runAndComplete(ec *execContext, trig store.Trigger) {
	ctx := context.Background()
	defer d.tracker.untrack(ec.jec.FireInstanceID)

	jobErr := ec.job.Execute(ctx, ec.jec)
	instruction := models.NoInstruction
	if jobErr != nil {
		ec.jec.SetError(jobErr)
		instruction = instructionFromJobError(jobErr)
	} else if !trig.MayFireAgain() {
		instruction = models.SetTriggerComplete
	}

	for _, l := range d.listeners.jobListenerSnapshot() {
		l.JobWasExecuted(ec.jec, jobErr)
	}
	for _, l := range d.listeners.triggerListenerSnapshot() {
		l.TriggerComplete(ec.jec, instruction)
	}

	if err := d.store.TriggeredJobComplete(ctx, trig, ec.jec.JobDetail, instruction); err != nil {
		d.listeners.notifySchedulerError("triggeredJobComplete", err)
	}
}

// notifyTriggerListenersFired runs TriggerFired across global then
// internal listeners, in registration order, returning true if any of them
// vetoes the execution.
func (d *dispatcher) notifyTriggerListenersFired(jec *models.JobExecutionContext) bool {
	veto := false
	for _, l := range d.listeners.triggerListenerSnapshot() {
		if l.TriggerFired(jec) {
			veto = true
		}
	}
	return veto
}

// instructionCoder lets a job's error steer the store's follow-up action
// without the engine needing to know about the job's concrete error type.
type instructionCoder interface {
	InstructionCode() models.InstructionCode
}

func instructionFromJobError(err error) models.InstructionCode {
	if ic, ok := err.(instructionCoder); ok {
		return ic.InstructionCode()
	}
	return models.NoInstruction
}
