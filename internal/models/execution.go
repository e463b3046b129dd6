package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobExecutionContext is the per-fire runtime instance the dispatcher
// builds and hands to listeners and the job body. Unlike JobExecution (the
// durable projection in job.go), this type lives only in memory for the
// duration of one fire and is never persisted directly.
type JobExecutionContext struct {
	FireInstanceID    uuid.UUID
	JobDetail         *JobDetail
	TriggerName       string
	TriggerGroup      string
	ScheduledFireTime time.Time
	ActualFireTime    time.Time
	RecoveringTrigger bool

	mu          sync.Mutex
	result      any
	resultErr   error
	jobInstance any
}

// NewJobExecutionContext builds a fresh context with a new fire-instance id.
func NewJobExecutionContext(job *JobDetail, triggerName, triggerGroup string, scheduled, actual time.Time) *JobExecutionContext {
	return &JobExecutionContext{
		FireInstanceID:    uuid.New(),
		JobDetail:         job,
		TriggerName:       triggerName,
		TriggerGroup:      triggerGroup,
		ScheduledFireTime: scheduled,
		ActualFireTime:    actual,
	}
}

// SetJobInstance records the resolved Job implementation for this fire.
func (c *JobExecutionContext) SetJobInstance(instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobInstance = instance
}

// JobInstance returns the resolved Job implementation, or nil if the
// dispatcher never resolved one (e.g. the fire was vetoed first).
func (c *JobExecutionContext) JobInstance() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobInstance
}

// SetResult stores the job body's result slot, mutable by the job itself.
func (c *JobExecutionContext) SetResult(result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = result
}

// Result returns the job body's result slot.
func (c *JobExecutionContext) Result() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// SetError records the job body's terminal error, if any.
func (c *JobExecutionContext) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultErr = err
}

// Err returns the job body's terminal error, if any.
func (c *JobExecutionContext) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultErr
}

// FireResult is what the store's TriggersFired operation returns per
// acquired trigger: either a resolved bundle, an indication that the
// trigger is no longer fireable, or an error.
type FireResult struct {
	Trigger    TriggerSnapshot
	Job        *JobDetail
	Calendar   string
	Scheduled  time.Time
	Actual     time.Time
	NoFire     bool
	Recovering bool
	Err        error
}

// TriggerSnapshot is the read-only trigger state the loop and dispatcher
// operate on; concrete Trigger kinds (internal/trigger) compute the fields
// that drive it but the core only ever sees this shape plus the Trigger
// interface methods.
type TriggerSnapshot struct {
	Name             string
	Group            string
	JobName          string
	JobGroup         string
	CalendarName     string
	Priority         int
	Volatile         bool
	MisfirePolicy    int
	State            TriggerState
	NextFireTime     *time.Time
	PreviousFireTime *time.Time
}

// Key returns the (name, group) identity of the trigger snapshot.
func (t TriggerSnapshot) Key() TriggerKey { return TriggerKey{Name: t.Name, Group: t.Group} }
