package engine

import (
	"context"

	"github.com/minisource/jobengine/internal/models"
)

// Job is the interface every concrete unit of work implements. The core is
// execution-kind-agnostic: internal/executor.HTTPExecutor is the one
// concrete implementation shipped with this repo, but any type satisfying
// Job can be scheduled.
type Job interface {
	Execute(ctx context.Context, execCtx *models.JobExecutionContext) error
}

// Interruptible is implemented by jobs that can cooperatively cancel a
// running execution. The scheduler never forcibly terminates a worker.
type Interruptible interface {
	Job
	Interrupt() error
}

// JobFactory resolves a JobDetail to a runnable Job instance.
type JobFactory interface {
	NewJob(detail *models.JobDetail) (Job, error)
}

// JobFactoryFunc adapts a plain function to JobFactory.
type JobFactoryFunc func(detail *models.JobDetail) (Job, error)

func (f JobFactoryFunc) NewJob(detail *models.JobDetail) (Job, error) { return f(detail) }

// execContext is the engine-internal envelope around a
// models.JobExecutionContext: it also carries the trigger snapshot and
// instruction code plumbing the dispatcher needs but that has no business
// being visible to job bodies or listeners.
type execContext struct {
	jec             *models.JobExecutionContext
	trigger         models.TriggerSnapshot
	calendar        string
	instructionCode models.InstructionCode
	job             Job
	vetoed          bool
	err             error
}
